// Package main provides the entry point for the storyvox CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/storyvox/storyvox/internal/cache"
	"github.com/storyvox/storyvox/internal/play"
	"github.com/storyvox/storyvox/pipeline"
	"github.com/storyvox/storyvox/pipeline/analysis"
	"github.com/storyvox/storyvox/pipeline/detect"
	"github.com/storyvox/storyvox/pipeline/synth"
	"github.com/storyvox/storyvox/pipeline/voices"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile    string
	outputPath    string
	formatName    string
	narratorMode  bool
	narratorVoice string
	voicesFile    string
	qualityPass   bool
	playAudio     bool
	debug         bool

	rootCmd = &cobra.Command{
		Use:   "storyvox [SOURCE]",
		Short: "Turn narrative text into a multi-voice narration",
		Long: paragraph(fmt.Sprintf(
			"\nRead a story, %s, and render every character with their own voice.",
			keyword("detect who speaks"),
		)),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		RunE:             execute,
	}
)

// envOverrides are environment settings applied on top of the config
// file.
type envOverrides struct {
	Debug    bool   `env:"STORYVOX_DEBUG"`
	CacheDir string `env:"STORYVOX_CACHE_DIR"`
	Voice    string `env:"STORYVOX_VOICE"`
}

// readSource reads the story text from a file argument, or stdin for "-"
// or no argument on a pipe.
func readSource(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("unable to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("unable to read %s: %w", args[0], err)
	}
	return string(data), nil
}

func execute(_ *cobra.Command, args []string) error {
	if debug || viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	overrides, err := env.ParseAs[envOverrides]()
	if err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	if overrides.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if overrides.Voice != "" && narratorVoice == "" {
		narratorVoice = overrides.Voice
	}

	text, err := readSource(args)
	if err != nil {
		return err
	}

	catalog, err := loadVoiceCatalog()
	if err != nil {
		return err
	}

	opts, err := buildOptions(catalog)
	if err != nil {
		return err
	}

	store, err := openClipStore(overrides.CacheDir)
	if err != nil {
		log.Warn("clip cache unavailable, rendering without it", "err", err)
	}
	if store != nil {
		defer store.Close() //nolint:errcheck
	}

	registry := composeRegistry(store, catalog)
	orchestrator := pipeline.New(registry)
	orchestrator.SetConfig(pipeline.OrchestratorConfig{
		OptimizeThreshold: viper.GetInt("pipeline.optimize_threshold"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// A second interrupt kills the process; the first one cancels
		// cooperatively.
		orchestrator.CancelProcessing()
	}()

	done := make(chan pipeline.Result[*pipeline.Narration], 1)
	go func() {
		done <- orchestrator.ProcessStory(ctx, text, opts)
	}()

	result := watchProgress(orchestrator, done)
	if !result.Succeeded {
		return errors.New(result.ErrorMessage)
	}
	narration := result.Value

	path, payload, err := renderOutput(narration, opts.Format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("unable to write %s: %w", path, err)
	}

	printSummary(path, narration, len(payload), store)

	if playAudio {
		log.Info("playing narration", "duration", narration.Duration)
		if err := play.PCM(ctx, narration.PCM, synth.SampleRate); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
	}
	return nil
}

// loadVoiceCatalog returns the catalog to run with: a custom one when
// --voices-file (or voices.file in the config) is set, the built-in one
// otherwise.
func loadVoiceCatalog() ([]pipeline.VoiceProfile, error) {
	path := voicesFile
	if path == "" {
		path = viper.GetString("voices.file")
	}
	if path == "" {
		return voices.Catalog(), nil
	}
	catalog, err := voices.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded custom voice catalog", "path", path, "voices", len(catalog))
	return catalog, nil
}

// buildOptions translates flags and config into run options.
func buildOptions(catalog []pipeline.VoiceProfile) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	switch formatName {
	case "", string(pipeline.FormatWAV):
		opts.Format = pipeline.FormatWAV
	case string(pipeline.FormatPCM):
		opts.Format = pipeline.FormatPCM
	case string(pipeline.FormatCompressed):
		opts.Format = pipeline.FormatCompressed
	default:
		return opts, fmt.Errorf("unsupported format %q (wav, pcm, compressed)", formatName)
	}
	opts.QualityAnalysis = qualityPass
	opts.Narrator = narratorMode
	if narratorVoice != "" {
		profile, ok := voices.LookupIn(catalog, narratorVoice)
		if !ok {
			return opts, fmt.Errorf("unknown voice %q, see 'storyvox voices'", narratorVoice)
		}
		opts.NarratorProfile = profile
	}
	return opts, nil
}

// composeRegistry binds the five stage capabilities. This happens once,
// before the run starts.
func composeRegistry(store *cache.Store, catalog []pipeline.VoiceProfile) *pipeline.Registry {
	registry := pipeline.NewRegistry()
	synthesizer := synth.NewSynthesizer()
	var generator pipeline.AudioGenerator = synthesizer
	if store != nil {
		// Cache-backed generation first; if the cache tier starts failing
		// mid-run, keep rendering without it.
		generator = synth.NewFallbackGenerator(
			synth.NewCachedSynthesizer(store),
			synthesizer,
			viper.GetInt("pipeline.fallback_failures"),
		)
	}
	registry.Register(pipeline.CapTextAnalysis, analysis.NewAnalyzer())
	registry.Register(pipeline.CapCharacterDetection, detect.NewDetector())
	registry.Register(pipeline.CapVoiceAssignment, voices.NewAssignerWithCatalog(catalog))
	registry.Register(pipeline.CapAudioGeneration, generator)
	registry.Register(pipeline.CapAudioOptimization, synthesizer)
	return registry
}

func openClipStore(override string) (*cache.Store, error) {
	cfg := cache.DefaultConfig()
	cfg.DiskPath = override
	if cfg.DiskPath == "" {
		cfg.DiskPath = viper.GetString("cache.dir")
	}
	if cfg.DiskPath == "" {
		scope := gap.NewScope(gap.User, "storyvox")
		dir, err := scope.CacheDir()
		if err != nil {
			return nil, err
		}
		cfg.DiskPath = filepath.Join(dir, "clips")
	}
	if max := viper.GetInt64("cache.max_size_mb"); max > 0 {
		cfg.DiskCapacity = max * 1024 * 1024
	}
	return cache.NewStore(cfg)
}

// watchProgress polls the orchestrator status and renders a progress line
// until the run finishes.
func watchProgress(o *pipeline.Orchestrator, done <-chan pipeline.Result[*pipeline.Narration]) pipeline.Result[*pipeline.Narration] {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case result := <-done:
			clearProgressLine()
			return result
		case <-ticker.C:
			status := o.ProcessingStatus().Value
			renderProgressLine(status)
		}
	}
}

var (
	stageStyle    = lipgloss.NewStyle().Bold(true)
	progressStyle = lipgloss.NewStyle().Faint(true)
	keywordStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"})
)

func renderProgressLine(status pipeline.Status) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	line := fmt.Sprintf("%s %s %s",
		stageStyle.Render(status.Stage.String()),
		progressStyle.Render(fmt.Sprintf("%3d%%", status.Progress)),
		status.Message,
	)
	if status.CurrentItem != "" {
		line += progressStyle.Render(" [" + status.CurrentItem + "]")
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && len(line) > w {
		line = line[:w]
	}
	fmt.Printf("\r\033[K%s", line)
}

func clearProgressLine() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Print("\r\033[K")
	}
}

// renderOutput encodes the narration payload for the selected format and
// picks the output path.
func renderOutput(narration *pipeline.Narration, format pipeline.OutputFormat) (string, []byte, error) {
	path := outputPath
	if format == pipeline.FormatPCM {
		if path == "" {
			path = "narration.pcm"
		}
		return path, narration.PCM, nil
	}
	// wav and compressed both ship a WAV container; compressed differs
	// upstream by forcing the optimization pass.
	if path == "" {
		path = "narration.wav"
	}
	payload, err := synth.EncodeWAV(narration.PCM)
	if err != nil {
		return "", nil, fmt.Errorf("unable to encode wav: %w", err)
	}
	return path, payload, nil
}

func printSummary(path string, narration *pipeline.Narration, written int, store *cache.Store) {
	optimized := ""
	if narration.Optimized {
		optimized = ", optimized"
	}
	fmt.Printf("%s %s (%s, %s%s)\n",
		keyword("Wrote"), path,
		narration.Duration.Round(time.Millisecond),
		humanize.Bytes(uint64(written)), //nolint:gosec
		optimized,
	)
	fmt.Printf("  %d segments, %d characters, rendered in %s\n",
		narration.SegmentCount, narration.CharacterCount,
		narration.ProcessingTime.Round(time.Millisecond))
	if store != nil {
		memory, disk := store.Stats()
		log.Debug("clip cache",
			"memHitRate", fmt.Sprintf("%.0f%%", memory.HitRate()*100),
			"diskItems", disk.ItemCount,
			"diskSize", humanize.Bytes(uint64(disk.Size))) //nolint:gosec
	}
}

// keyword renders a styled inline keyword.
func keyword(s string) string {
	return keywordStyle.Render(s)
}

// paragraph pads help text the way the styled help output expects.
func paragraph(s string) string {
	return strings.TrimSpace(lipgloss.NewStyle().Padding(0, 1).Render(s))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()

	if len(CommitSHA) >= 7 { //nolint:mnd
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path")
	rootCmd.Flags().StringVarP(&formatName, "format", "f", "wav", "output format: wav, pcm, or compressed")
	rootCmd.Flags().BoolVar(&narratorMode, "narrator", false, "single-narrator mode (skip character detection)")
	rootCmd.Flags().StringVar(&narratorVoice, "voice", "", "narrator voice id (see 'storyvox voices')")
	rootCmd.Flags().StringVar(&voicesFile, "voices-file", "", "custom voice catalog (YAML)")
	rootCmd.Flags().BoolVarP(&qualityPass, "quality", "q", false, "force the audio quality pass")
	rootCmd.Flags().BoolVar(&playAudio, "play", false, "play the narration after rendering")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	_ = viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("narrator", rootCmd.Flags().Lookup("narrator"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))

	viper.SetDefault("format", "wav")
	viper.SetDefault("narrator", false)
	viper.SetDefault("voice", "")
	viper.SetDefault("voices.file", "")
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.max_size_mb", 256)
	viper.SetDefault("pipeline.optimize_threshold", 10)
	viper.SetDefault("pipeline.fallback_failures", 3)

	rootCmd.AddCommand(configCmd, voicesCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "storyvox")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "storyvox")}, dirs...)
	}
	if c := os.Getenv("STORYVOX_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("storyvox")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("storyvox")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}
	configFile = filepath.Join(dirs[0], "storyvox.yml")
}
