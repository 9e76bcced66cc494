package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/robotcell/dobot/components/arm"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"dobotctl"}, args...))
	return out.String(), err
}

func TestSimulatorCommands(t *testing.T) {
	out, err := runApp(t, "--simulator", "pose")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "0.0000")

	out, err = runApp(t, "--simulator", "move", "--x", "0.1", "--y", "-0.05", "--z", "0.02", "--yaw", "30", "--velocity", "100")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "0.1000")
	test.That(t, out, test.ShouldContainSubstring, "-0.0500")
	test.That(t, out, test.ShouldContainSubstring, "30.00")

	out, err = runApp(t, "--simulator", "joints")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "magician_joint_5")

	out, err = runApp(t, "--simulator", "alarms")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "no alarms")

	_, err = runApp(t, "--simulator", "suck")
	test.That(t, err, test.ShouldBeNil)
	_, err = runApp(t, "--simulator", "clear-alarms")
	test.That(t, err, test.ShouldBeNil)
}

func TestMoveErrors(t *testing.T) {
	_, err := runApp(t, "--simulator", "move", "--x", "0.1", "--y", "0", "--z", "0", "--velocity", "150")
	test.That(t, errors.Is(err, arm.ErrOutOfRange), test.ShouldBeTrue)

	_, err = runApp(t, "--simulator", "move", "--x", "0.1", "--y", "0", "--z", "0", "--type", "CIRCLE")
	test.That(t, errors.Is(err, arm.ErrUnsupportedMoveType), test.ShouldBeTrue)

	out, err := runApp(t, "--simulator", "move", "--x", "0.1", "--velocity", "100")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "y, z")
	test.That(t, out, test.ShouldNotContainSubstring, "0.1000")

	_, err = runApp(t, "--simulator", "--revision", "v7", "pose")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell.json")
	doc := `{"components": [{
		"name": "left",
		"pose": {"translation": {"x": 1, "y": 0, "z": 0}},
		"attributes": {"simulator": true, "revision": "v1", "sim_max_pause": "10ms"}
	}]}`
	test.That(t, os.WriteFile(path, []byte(doc), 0o600), test.ShouldBeNil)

	out, err := runApp(t, "--config", path, "--name", "left", "pose")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "1.0000")

	_, err = runApp(t, "--config", path, "--name", "right", "pose")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestComponentsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cell.json")
	doc := `{"components": [
		{"name": "left", "model": "magician", "attributes": {"simulator": "true", "revision": "v1"}},
		{"name": "right", "model": "magician", "attributes": {"port": "/dev/ttyUSB1"}}
	]}`
	test.That(t, os.WriteFile(path, []byte(doc), 0o600), test.ShouldBeNil)

	out, err := runApp(t, "--config", path, "components")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "left")
	test.That(t, out, test.ShouldContainSubstring, "/dev/ttyUSB1")
	test.That(t, out, test.ShouldContainSubstring, "/dev/dobot")
	test.That(t, out, test.ShouldContainSubstring, "true")

	_, err = runApp(t, "components")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLogFileSize(t *testing.T) {
	size, err := logSizeMB("25MB")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, size, test.ShouldEqual, 25)
	size, err = logSizeMB("1kb")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, size, test.ShouldEqual, 1)
	_, err = logSizeMB("lots")
	test.That(t, err, test.ShouldNotBeNil)

	logPath := filepath.Join(t.TempDir(), "dobotctl.log")
	_, err = runApp(t, "--log-file", logPath, "--log-max-size", "lots", "actions")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = runApp(t, "--log-file", logPath, "--log-max-size", "2MB", "--simulator", "pose")
	test.That(t, err, test.ShouldBeNil)
}

func TestActionsCommand(t *testing.T) {
	out, err := runApp(t, "actions")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "move_to_pose")
	test.That(t, out, test.ShouldContainSubstring, "release")
}
