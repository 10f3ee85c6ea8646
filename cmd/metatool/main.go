// metatool inspects embedded image metadata and cache key inputs from the
// command line, useful when debugging why a gallery entry looks stale.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"gallery-server/internal/exifmeta"
	"gallery-server/internal/gallery"
	"gallery-server/internal/optimize"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "metatool",
	Short: "Gallery metadata and cache key toolbox",
	Long: `metatool works with the same extraction and fingerprinting code the
gallery server runs, so its output matches what the server caches.

Example usage:
  metatool inspect photo.jpg               # Print embedded metadata
  metatool inspect https://img.example.com/splash/a.png
  metatool fingerprint /media/splash       # Fingerprint a local folder
  metatool key --width 300 --format jpeg   # Print the cache options key`,
	SilenceUsage: true,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file-or-url>",
	Short: "Print metadata embedded in an image",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <folder> [patterns...]",
	Short: "Print the state fingerprint of a local folder",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFingerprint,
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Print the cache key for a set of optimization options",
	RunE:  runKey,
}

var (
	keyWidth   int
	keyQuality int
	keyFormat  string
)

func init() {
	keyCmd.Flags().IntVar(&keyWidth, "width", 0, "target width (default 600)")
	keyCmd.Flags().IntVar(&keyQuality, "quality", 0, "encode quality (default 80)")
	keyCmd.Flags().StringVar(&keyFormat, "format", "", "output format (default webp)")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(keyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	target := args[0]

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var data []byte
	var err error
	if _, statErr := os.Stat(target); statErr == nil {
		data, err = os.ReadFile(target)
	} else {
		client := &http.Client{Timeout: 30 * time.Second}
		data, err = exifmeta.Resolve(ctx, target, nil, client)
	}
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if data == nil {
		return fmt.Errorf("image not found: %s", target)
	}

	info := exifmeta.Extract(data)
	if info == nil {
		fmt.Println("No embedded metadata found.")
		return nil
	}

	encoded, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func runFingerprint(_ *cobra.Command, args []string) error {
	cfg := gallery.SourceConfig{
		SourceType:  gallery.SourceFolder,
		LocalFolder: args[0],
	}
	if len(args) > 1 {
		cfg.Patterns = args[1:]
	}

	items, err := gallery.NewLister(nil).List(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to list folder: %w", err)
	}

	fmt.Printf("%d items\n", len(items))
	fmt.Println(gallery.Fingerprint(items, nil))
	return nil
}

func runKey(_ *cobra.Command, _ []string) error {
	opts := optimize.Options{
		Width:   keyWidth,
		Quality: keyQuality,
		Format:  keyFormat,
	}
	fmt.Println(optimize.Key(opts))
	return nil
}
