package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/binzume/fbx2gltf/converter"
	"github.com/binzume/fbx2gltf/gltfutil"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "fbx2gltf [flags] <input.fbx>",
	Short: "Convert FBX scenes to glTF 2.0",
	Long: `fbx2gltf converts a binary or ASCII FBX file (version 7.0 or later) into a
glTF 2.0 document. Meshes, materials, textures, skins, blend shapes and baked
animations are carried over. Output is .gltf with external buffers by default,
or a single .glb when the output path ends with .glb or --binary is given.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConvert,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./fbx2gltf.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file (rotated)")

	f := rootCmd.Flags()
	f.StringP("output", "o", "", "output file (default: <base>_glTF/<base>.gltf)")
	f.Bool("binary", false, "write a single .glb file")
	f.String("fbm-dir", "", "directory for embedded media, searched first for textures")
	f.Bool("no-flip-v", false, "keep texture V coordinates as stored in the FBX")
	f.Float64("animation-bake-rate", converter.DefaultBakeRate, "animation samples per second")
	f.Float64("suspected-animation-duration-limit", 0, "seconds; longer takes are truncated and flagged (0: off)")
	f.Bool("embed-buffers", false, "store buffers as data URIs in the .gltf")
	f.Bool("embed-external-images", false, "embed images that are separate files in the source")
	f.Bool("reference-embedded-images", false, "write images embedded in the FBX as separate files")
	f.String("index-format", string(converter.IndexFormatAuto), "index component type: auto, 16 or 32")
	f.Int("texture-size-limit", 0, "downscale textures larger than this many pixels per side (0: off)")
	f.String("report", "", "write a YAML report of warnings and takes to this file")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("fbx2gltf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("FBX2GLTF")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// defaultOutputFile returns <dir>/<base>_glTF/<base>.gltf.
func defaultOutputFile(dir, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"_glTF", base+".gltf")
}

func conversionOptions(input string, log *zap.Logger) *converter.Options {
	return &converter.Options{
		InputPath:              input,
		MediaDir:               viper.GetString("fbm-dir"),
		BakeRate:               viper.GetFloat64("animation-bake-rate"),
		NoFlipV:                viper.GetBool("no-flip-v"),
		SuspectedDurationLimit: viper.GetFloat64("suspected-animation-duration-limit"),
		IndexFormat:            converter.IndexFormat(viper.GetString("index-format")),
		TextureSizeLimit:       viper.GetInt("texture-size-limit"),
		Logger:                 log,
	}
}

func writeOptions() *gltfutil.WriteOptions {
	return &gltfutil.WriteOptions{
		Binary:                  viper.GetBool("binary"),
		EmbedBuffers:            viper.GetBool("embed-buffers"),
		EmbedExternalImages:     viper.GetBool("embed-external-images"),
		ReferenceEmbeddedImages: viper.GetBool("reference-embedded-images"),
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		return err
	}
	log, err := newLogger(viper.GetString("log-level"), viper.GetString("log-file"))
	if err != nil {
		return err
	}
	defer log.Sync()

	input, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	output := viper.GetString("output")
	if output == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		output = defaultOutputFile(cwd, input)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	if dir := viper.GetString("fbm-dir"); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return convertFile(ctx, input, output, log)
}

func convertFile(ctx context.Context, input, output string, log *zap.Logger) error {
	result, err := converter.Convert(ctx, conversionOptions(input, log))
	if err != nil {
		return fmt.Errorf("convert %s: %w", input, err)
	}
	for _, w := range result.Warnings {
		log.Warn(w.Error())
	}
	if err := gltfutil.Write(ctx, result.Document, output, writeOptions()); err != nil {
		return err
	}
	log.Info("written", zap.String("output", output))

	if path := viper.GetString("report"); path != "" {
		if err := writeReport(path, newReport(input, output, result)); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fbx2gltf:", err)
		os.Exit(1)
	}
}
