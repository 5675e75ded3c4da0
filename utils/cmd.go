package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds the configuration shared by all commands.
var Cfg *viper.Viper

type option struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

var options []option

func init() {
	traceSets := []*pflag.FlagSet{voxelizeCmd.Flags()}
	buildSets := []*pflag.FlagSet{voxelizeCmd.Flags(), shapeCmd.PersistentFlags(), editCmd.Flags()}

	options = []option{
		{
			name:       "config",
			usage:      "config specifies the configuration file location.",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name:       "log-level",
			usage:      "log-level is one of panic, fatal, error, warn, info, debug or trace.",
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name:       "axes",
			usage:      "axes lists the trace axes, any combination of x, y and z.",
			shorthand:  "a",
			defaultVal: "xyz",
			flagsets:   traceSets,
		},
		{
			name:       "mode",
			usage:      "mode is odd (rays through cell centers) or even (rays through cell boundaries).",
			defaultVal: "odd",
			flagsets:   traceSets,
		},
		{
			name:       "material",
			usage:      "material is assigned to every imported mesh or generated shape. 255 makes a mesh a cut-out.",
			shorthand:  "m",
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{voxelizeCmd.Flags(), shapeCmd.PersistentFlags()},
		},
		{
			name:       "face-material",
			usage:      "face-material is bled into empty cells next to the traced surface; -1 disables it.",
			defaultVal: -1,
			flagsets:   traceSets,
		},
		{
			name:       "base-material",
			usage:      "base-material is the material of empty cells in a new volume.",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{voxelizeCmd.Flags(), shapeCmd.PersistentFlags()},
		},
		{
			name:       "shell-material",
			usage:      "shell-material repaints every occupied cell with an empty neighbour; -1 disables it.",
			defaultVal: -1,
			flagsets:   buildSets,
		},
		{
			name:       "scale",
			usage:      "scale is applied to the mesh before tracing (x,y,z).",
			defaultVal: []string{"1", "1", "1"},
			flagsets:   traceSets,
		},
		{
			name:       "rotation",
			usage:      "rotation is applied after scale, in degrees about x, then y, then z.",
			defaultVal: []string{"0", "0", "0"},
			flagsets:   traceSets,
		},
		{
			name:       "translation",
			usage:      "translation is applied last (x,y,z).",
			defaultVal: []string{"0", "0", "0"},
			flagsets:   traceSets,
		},
		{
			name:       "parallel",
			usage:      "parallel builds chunks concurrently.",
			shorthand:  "p",
			defaultVal: false,
			flagsets:   buildSets,
		},
		{
			name:       "workers",
			usage:      "workers limits the tracer pool and the parallel builder; 0 uses one per CPU.",
			defaultVal: 0,
			flagsets:   buildSets,
		},
		{
			name:       "chunk-edge",
			usage:      "chunk-edge is the edge of the chunks the builder walks; 0 uses 64.",
			defaultVal: 0,
			flagsets:   buildSets,
		},
		{
			name:       "compression",
			usage:      "compression of the written .voxpack: none, zlib or zstd.",
			defaultVal: "zstd",
			flagsets:   buildSets,
		},
		{
			name:       "layout",
			usage:      "layout of the written .voxpack: raw or dedup (repeated blocks and planes stored once).",
			defaultVal: "raw",
			flagsets:   buildSets,
		},
		{
			name:       "palette",
			usage:      "palette overrides the first material colors with #RRGGBB[AA] values.",
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{exportCmd.Flags()},
		},
		{
			name:       "size",
			usage:      "size of the generated cube, or of the volume holding the noise (x,y,z).",
			defaultVal: []int{16, 16, 16},
			flagsets:   []*pflag.FlagSet{shapeCmd.PersistentFlags()},
		},
		{
			name:       "safe-size",
			usage:      "safe-size is the empty margin around a generated cube.",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{shapeCmd.PersistentFlags()},
		},
		{
			name:       "hollow",
			usage:      "hollow keeps only a shell of shell-width cells.",
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{shapeCmd.PersistentFlags()},
		},
		{
			name:       "shell-width",
			usage:      "shell-width is the wall thickness of hollow shapes.",
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{shapeCmd.PersistentFlags()},
		},
		{
			name:       "radius",
			usage:      "radius of the generated sphere.",
			shorthand:  "r",
			defaultVal: 8.0,
			flagsets:   []*pflag.FlagSet{shapeCmd.PersistentFlags()},
		},
		{
			name:       "percent",
			usage:      "percent of cells filled by the noise generator.",
			defaultVal: 50.0,
			flagsets:   []*pflag.FlagSet{shapeCmd.PersistentFlags()},
		},
		{
			name:       "seed",
			usage:      "seed of the noise generator.",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{shapeCmd.PersistentFlags()},
		},
	}

	Cfg = viper.New()
	Cfg.SetEnvPrefix("VOXBUILD")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 {
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case []int:
				set.IntSliceP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}

	Root.AddCommand(voxelizeCmd, shapeCmd, editCmd, exportCmd, infoCmd)
	shapeCmd.AddCommand(cubeCmd, sphereCmd, noiseCmd)
}

// SetDefaults registers the default value of every option in v.
func SetDefaults(v *viper.Viper) {
	for _, o := range options {
		v.SetDefault(o.name, o.defaultVal)
	}
}

// setConfig reads the configuration file, if there is one, and sets up
// logging.
func setConfig() error {
	if path := Cfg.GetString("config"); path != "" {
		Cfg.SetConfigFile(path)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("voxbuild: problem reading configuration file: %w", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("log-level"))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "voxbuild",
	Short: "Voxelize meshes and build procedural volumes.",
	Long: `voxbuild converts triangle meshes into chunked voxel volumes (.voxpack)
and generates procedural shapes.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'VOXBUILD_var' where 'var'
is the upper-cased option name with dashes replaced by underscores.`,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var voxelizeCmd = &cobra.Command{
	Use:   "voxelize <in.glb> <out.voxpack>",
	Short: "Voxelize the meshes of a binary glTF.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunVoxelize(cmd.Context(), cfg, args[0], args[1])
	},
}

var shapeCmd = &cobra.Command{
	Use:   "shape",
	Short: "Generate a procedural volume.",
}

var cubeCmd = &cobra.Command{
	Use:   "cube <out.voxpack>",
	Short: "Generate a cube of --size cells with a --safe-size margin.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunCube(cmd.Context(), cfg, args[0])
	},
}

var sphereCmd = &cobra.Command{
	Use:   "sphere <out.voxpack>",
	Short: "Generate a sphere of --radius cells.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunSphere(cmd.Context(), cfg, args[0])
	},
}

var noiseCmd = &cobra.Command{
	Use:   "noise <out.voxpack>",
	Short: "Fill a volume of --size cells with --percent random cells.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunNoise(cmd.Context(), cfg, args[0])
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <in.voxpack> <edits.json> <out.voxpack>",
	Short: "Apply material replacements and cell overrides.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunEdit(cmd.Context(), cfg, args[0], args[1], args[2])
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <in.voxpack> <out.glb>",
	Short: "Export the solid surface of a volume as binary glTF.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		return RunExport(cfg, args[0], args[1])
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <in.voxpack>",
	Short: "Describe a volume.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunInfo(cmd.OutOrStdout(), args[0])
	},
}
