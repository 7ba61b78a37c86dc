package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	owt "github.com/hapticio/owt"
)

func main() {
	var (
		inFile      = flag.String("f", "", "Read the waveform string from a file")
		outFile     = flag.String("o", "", "Write raw binary output to a file")
		profilePath = flag.String("profile", "", "Path to a YAML layout profile")
		verbose     = flag.Bool("v", false, "Verbose compile logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer l.Sync()
		owt.SetLogger(l)
	}

	profile := owt.DefaultProfile()
	if *profilePath != "" {
		p, err := owt.LoadProfile(*profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		profile = p
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(profile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	input, err := readInput(*inFile, flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Usage: owtc [-profile file.yaml] [-o out.bin] '<waveform string>'")
		fmt.Fprintln(os.Stderr, "       owtc -f input.txt")
		fmt.Fprintln(os.Stderr, "       owtc -i  (interactive mode)")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(profile, input, *outFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// readInput picks the waveform string from the positional argument, an
// input file, or piped stdin, in that order.
func readInput(inFile string, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if inFile != "" {
		data, err := os.ReadFile(inFile)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return string(data), nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("no waveform string given")
}

func run(profile owt.Profile, input, outFile string) error {
	data, err := profile.Compile(strings.TrimSpace(input))
	if err != nil {
		return err
	}

	if outFile != "" {
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(data), outFile)
		return nil
	}

	// Raw bytes when piped, a readable dump on a terminal.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		_, err := os.Stdout.Write(data)
		return err
	}

	fmt.Printf("Compiled %d bytes\n\n", len(data))
	fmt.Print(hex.Dump(data))
	return nil
}
