package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/robotcell/dobot/components/arm"
	"github.com/robotcell/dobot/components/arm/dobot"
	"github.com/robotcell/dobot/config"
	"github.com/robotcell/dobot/logging"
	"github.com/robotcell/dobot/spatialmath"
	"github.com/robotcell/dobot/utils"
)

const (
	flagConfig   = "config"
	flagName     = "name"
	flagSim      = "simulator"
	flagPort     = "port"
	flagRevision = "revision"
	flagDebug    = "debug"
	flagLogFile  = "log-file"
	flagLogSize  = "log-max-size"
	flagYes      = "yes"

	flagX            = "x"
	flagY            = "y"
	flagZ            = "z"
	flagYaw          = "yaw"
	flagType         = "type"
	flagVelocity     = "velocity"
	flagAcceleration = "acceleration"
)

// armCommand is the body of a command that needs a connected arm.
type armCommand func(c *cli.Context, d *dobot.Dobot, rev arm.Revision) error

func newApp() *cli.App {
	var logger logging.Logger

	return &cli.App{
		Name:  "dobotctl",
		Usage: "drive a Dobot Magician",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load the arm from the workcell configuration in `FILE`",
			},
			&cli.StringFlag{
				Name:  flagName,
				Value: "dobot",
				Usage: "name of the arm component in the configuration",
			},
			&cli.BoolFlag{
				Name:  flagSim,
				Usage: "use the simulated arm",
			},
			&cli.StringFlag{
				Name:  flagPort,
				Usage: "serial port of the arm",
			},
			&cli.StringFlag{
				Name:  flagRevision,
				Usage: "hardware revision (v1 or v2)",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "also write JSON logs to `FILE`",
			},
			&cli.StringFlag{
				Name:  flagLogSize,
				Value: "10MB",
				Usage: "rotate the log file once it reaches `SIZE`",
			},
			&cli.BoolFlag{
				Name:  flagYes,
				Usage: "do not ask before moving real hardware",
			},
		},
		Before: func(c *cli.Context) error {
			if path := c.String(flagLogFile); path != "" {
				sizeMB, err := logSizeMB(c.String(flagLogSize))
				if err != nil {
					return err
				}
				logger = logging.NewFileLogger("dobotctl", logging.FileOptions{Path: path, MaxSizeMB: sizeMB, MaxBackups: 3})
			} else {
				logger = logging.NewLogger("dobotctl")
			}
			if c.Bool(flagDebug) {
				logger.SetLevel(logging.DEBUG)
			}
			logging.ReplaceGlobal(logger)
			return nil
		},
		After: func(c *cli.Context) error {
			if logger == nil {
				return nil
			}
			//nolint:errcheck
			logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "home",
				Usage:  "run the homing procedure",
				Action: withConfirmedArm(&logger, "Home the arm? It sweeps through its whole workspace.", homeAction),
			},
			{
				Name:  "move",
				Usage: "move the end effector to a world frame position",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: flagX, Usage: "x in meters", Required: true},
					&cli.Float64Flag{Name: flagY, Usage: "y in meters", Required: true},
					&cli.Float64Flag{Name: flagZ, Usage: "z in meters", Required: true},
					&cli.Float64Flag{Name: flagYaw, Usage: "tool yaw in degrees"},
					&cli.StringFlag{Name: flagType, Value: dobot.MoveTypeJump.String(), Usage: "JUMP, JOINTS or LINEAR"},
					&cli.Float64Flag{Name: flagVelocity, Value: dobot.DefaultVelocity, Usage: "velocity in percent"},
					&cli.Float64Flag{Name: flagAcceleration, Value: dobot.DefaultAcceleration, Usage: "acceleration in percent"},
				},
				Before: requireFlags(flagX, flagY, flagZ),
				Action: withConfirmedArm(&logger, "Move the arm?", moveAction),
			},
			{
				Name:   "pose",
				Usage:  "print the end effector pose",
				Action: withArm(&logger, poseAction),
			},
			{
				Name:   "joints",
				Usage:  "print the joint positions",
				Action: withArm(&logger, jointsAction),
			},
			{
				Name:  "suck",
				Usage: "turn the suction cup on",
				Action: withArm(&logger, func(c *cli.Context, d *dobot.Dobot, _ arm.Revision) error {
					return d.Suck(c.Context)
				}),
			},
			{
				Name:  "release",
				Usage: "turn the suction cup off",
				Action: withArm(&logger, func(c *cli.Context, d *dobot.Dobot, _ arm.Revision) error {
					return d.Release(c.Context)
				}),
			},
			{
				Name:   "alarms",
				Usage:  "list the active alarms",
				Action: withArm(&logger, alarmsAction),
			},
			{
				Name:  "clear-alarms",
				Usage: "reset all alarms",
				Action: withArm(&logger, func(c *cli.Context, d *dobot.Dobot, _ arm.Revision) error {
					if err := d.ClearAlarms(c.Context); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, color.GreenString("alarms cleared"))
					return nil
				}),
			},
			{
				Name:   "actions",
				Usage:  "list the arm's actions and their parameters",
				Action: actionsAction,
			},
			{
				Name:   "components",
				Usage:  "list the arms in the workcell configuration",
				Action: componentsAction,
			},
		},
	}
}

// requireFlags fails the command before any connection is made unless all the named flags were given.
func requireFlags(names ...string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		missing := lo.Reject(names, func(name string, _ int) bool { return c.IsSet(name) })
		if len(missing) > 0 {
			return errors.Errorf("required flags %q not set", strings.Join(missing, ", "))
		}
		return nil
	}
}

func logSizeMB(size string) (int, error) {
	bytes, err := units.FromHumanSize(size)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid --%s", flagLogSize)
	}
	return max(1, int(bytes/units.MB)), nil
}

// withArm opens the arm for the duration of the command.
func withArm(logger *logging.Logger, cmd armCommand) cli.ActionFunc {
	return withConfirmedArm(logger, "", cmd)
}

// withConfirmedArm is withArm that first asks the operator at a terminal before a real arm is moved.
func withConfirmedArm(logger *logging.Logger, prompt string, cmd armCommand) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		conf, mount, err := armConfig(c)
		if err != nil {
			return err
		}
		if prompt != "" && !conf.Simulator && !c.Bool(flagYes) && term.IsTerminal(int(os.Stdin.Fd())) {
			ok := false
			if err := huh.NewConfirm().Title(prompt).Affirmative("Yes").Negative("No").Value(&ok).Run(); err != nil {
				return err
			}
			if !ok {
				return errors.New("aborted")
			}
		}
		rev, err := conf.HardwareRevision()
		if err != nil {
			return err
		}
		d, err := dobot.New(c.Context, c.String(flagName), mount, conf, *logger)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, d.Close(c.Context))
		}()
		return cmd(c, d, rev)
	}
}

// armConfig merges the configuration file, if any, with the command line flags.
func armConfig(c *cli.Context) (*dobot.Config, spatialmath.Pose, error) {
	conf := &dobot.Config{}
	var mount spatialmath.Pose
	if path := c.String(flagConfig); path != "" {
		cfg, err := config.Read(path)
		if err != nil {
			return nil, nil, err
		}
		cmp, err := cfg.FindComponent(c.String(flagName))
		if err != nil {
			return nil, nil, err
		}
		if err := config.DecodeAttributes(cmp.Attributes, conf); err != nil {
			return nil, nil, errors.Wrapf(err, "component %q", cmp.Name)
		}
		if cmp.Pose != nil {
			if mount, err = cmp.Pose.Pose(); err != nil {
				return nil, nil, err
			}
		}
	}
	if c.IsSet(flagSim) {
		conf.Simulator = c.Bool(flagSim)
	}
	if c.IsSet(flagPort) {
		conf.Port = c.String(flagPort)
	}
	if c.IsSet(flagRevision) {
		conf.Revision = c.String(flagRevision)
	}
	return conf, mount, nil
}

func homeAction(c *cli.Context, d *dobot.Dobot, _ arm.Revision) error {
	if err := d.Home(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, color.GreenString("homed"))
	return nil
}

func moveAction(c *cli.Context, d *dobot.Dobot, rev arm.Revision) error {
	mt, err := dobot.ParseMoveType(c.String(flagType))
	if err != nil {
		return err
	}
	target := spatialmath.NewPose(
		r3.Vector{X: c.Float64(flagX), Y: c.Float64(flagY), Z: c.Float64(flagZ)},
		spatialmath.OrientationFromYaw(utils.DegToRad(c.Float64(flagYaw)), rev.Tilt),
	)
	req := dobot.MoveRequest{
		Pose:         target,
		Type:         mt,
		Velocity:     c.Float64(flagVelocity),
		Acceleration: c.Float64(flagAcceleration),
	}
	if err := d.MoveTo(c.Context, req); err != nil {
		return err
	}
	return poseAction(c, d, rev)
}

func poseAction(c *cli.Context, d *dobot.Dobot, rev arm.Revision) error {
	pose, err := d.EndEffectorPose(c.Context, dobot.DefaultEndEffector)
	if err != nil {
		return err
	}
	writePose(c.App.Writer, pose, rev)
	return nil
}

func writePose(w io.Writer, pose spatialmath.Pose, rev arm.Revision) {
	pt := pose.Point()
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"X (m)", "Y (m)", "Z (m)", "Yaw (deg)"})
	t.AppendRow(table.Row{
		fmt.Sprintf("%.4f", pt.X),
		fmt.Sprintf("%.4f", pt.Y),
		fmt.Sprintf("%.4f", pt.Z),
		fmt.Sprintf("%.2f", utils.RadToDeg(spatialmath.ToolYawOf(pose.Orientation(), rev.Tilt))),
	})
	t.Render()
}

func jointsAction(c *cli.Context, d *dobot.Dobot, _ arm.Revision) error {
	joints, err := d.JointPositions(c.Context)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Joint", "Value (deg)"})
	for _, j := range joints {
		t.AppendRow(table.Row{j.Name, fmt.Sprintf("%.2f", utils.RadToDeg(j.Value))})
	}
	t.Render()
	return nil
}

func alarmsAction(c *cli.Context, d *dobot.Dobot, _ arm.Revision) error {
	faults, err := d.Alarms(c.Context)
	if err != nil {
		return err
	}
	if faults.Empty() {
		fmt.Fprintln(c.App.Writer, color.GreenString("no alarms"))
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Code", "Alarm"})
	for _, a := range faults {
		t.AppendRow(table.Row{fmt.Sprintf("0x%02X", uint8(a)), color.YellowString(a.String())})
	}
	t.Render()
	return nil
}

func componentsAction(c *cli.Context) error {
	path := c.String(flagConfig)
	if path == "" {
		return errors.Errorf("components needs --%s", flagConfig)
	}
	cfg, err := config.Read(path)
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Name", "Model", "Port", "Revision", "Simulated"})
	for _, comp := range cfg.Components {
		port := comp.Attributes.String("port")
		if port == "" {
			port = dobot.DefaultPort
		}
		rev := comp.Attributes.String("revision")
		if rev == "" {
			rev = arm.RevisionV2.Name
		}
		t.AppendRow(table.Row{comp.Name, comp.Model, port, rev, comp.Attributes.Bool("simulator", false)})
	}
	t.Render()
	return nil
}

func actionsAction(c *cli.Context) error {
	t := table.NewWriter()
	t.SetOutputMirror(c.App.Writer)
	t.AppendHeader(table.Row{"Action", "Blocking", "Parameters"})
	for _, a := range dobot.Actions() {
		schema, err := json.Marshal(a.Params)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{a.Name, a.Blocking, string(schema)})
	}
	t.Render()
	return nil
}
