package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geocoding-cli/internal/config"
	"github.com/sells-group/geocoding-cli/internal/enrich"
	"github.com/sells-group/geocoding-cli/internal/record"
)

var (
	enrichFields       []string
	enrichThreads      int
	enrichWindow       int
	enrichNullValue    string
	enrichUnit         string
	enrichFormat       string
	enrichOutputFormat string
	enrichInput        string
	enrichOutput       string
	enrichCharset      string
	enrichSheet        string
	enrichAPIKey       string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [field...]",
	Short: "Geocode address fields of records read from a file or stdin",
	Example: `  geocoding enrich --field address < people.csv > geocoded.csv
  geocoding enrich home_address work_address --input people.jsonl --threads 16`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts, err := resolveEnrichOptions(cmd, args, cfg.Geocode)
		if err != nil {
			return err
		}

		apiKey, err := resolveAPIKey(ctx, opts.apiKey, cfg.Credential)
		if err != nil {
			return err
		}
		client, err := newGeocodeClient(cfg.Geocode, apiKey, opts.unit)
		if err != nil {
			return err
		}

		e, err := enrich.New(client, enrich.Config{
			Fields:      opts.fields,
			Workers:     opts.threads,
			Window:      opts.window,
			Placeholder: opts.nullValue,
		})
		if err != nil {
			return err
		}

		in, err := openInput(opts.input)
		if err != nil {
			return err
		}
		defer in.Close() //nolint:errcheck

		out, err := openOutput(opts.output)
		if err != nil {
			return err
		}
		defer out.Close() //nolint:errcheck

		r, err := record.NewReader(opts.inFormat, in, record.ReaderOptions{Charset: opts.charset, Sheet: opts.sheet})
		if err != nil {
			return err
		}
		w, err := record.NewWriter(opts.outFormat, out)
		if err != nil {
			return err
		}

		stats, err := runStream(ctx, e, r, w)
		if err != nil {
			return err
		}

		zap.L().Info("enrich: output written",
			zap.String("run_id", stats.RunID),
			zap.String("output", displayPath(opts.output)),
			zap.Int("records", stats.Records),
		)
		return nil
	},
}

type enrichOptions struct {
	fields    []string
	threads   int
	window    int
	nullValue string
	unit      string
	inFormat  record.Format
	outFormat record.Format
	input     string
	output    string
	charset   string
	sheet     string
	apiKey    string
}

// resolveEnrichOptions merges flags over config. Flags only win when set.
func resolveEnrichOptions(cmd *cobra.Command, args []string, gc config.GeocodeConfig) (*enrichOptions, error) {
	flags := cmd.Flags()
	opts := &enrichOptions{
		fields:    append(append([]string(nil), enrichFields...), args...),
		threads:   gc.Threads,
		window:    gc.Window,
		nullValue: gc.NullValue,
		unit:      gc.Unit,
		input:     enrichInput,
		output:    enrichOutput,
		charset:   enrichCharset,
		sheet:     enrichSheet,
		apiKey:    gc.APIKey,
	}
	if len(opts.fields) == 0 {
		opts.fields = gc.Fields
	}
	if len(opts.fields) == 0 {
		return nil, eris.New("no address fields: pass --field or set geocode.fields")
	}
	if flags.Changed("threads") {
		opts.threads = enrichThreads
	}
	if flags.Changed("window") {
		opts.window = enrichWindow
	}
	if flags.Changed("null-value") {
		opts.nullValue = enrichNullValue
	}
	if flags.Changed("unit") {
		opts.unit = enrichUnit
	}
	if flags.Changed("api-key") {
		opts.apiKey = enrichAPIKey
	}

	var err error
	if flags.Changed("format") {
		opts.inFormat, err = record.ParseFormat(enrichFormat)
	} else {
		opts.inFormat, err = inferFormat(opts.input, gc.Format)
	}
	if err != nil {
		return nil, err
	}

	if flags.Changed("output-format") {
		opts.outFormat, err = record.ParseFormat(enrichOutputFormat)
	} else {
		opts.outFormat, err = inferFormat(opts.output, string(opts.inFormat))
	}
	if err != nil {
		return nil, err
	}
	return opts, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open input %s", path)
	}
	return f, nil
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "create output %s", path)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func displayPath(path string) string {
	if path == "" || path == "-" {
		return "stdout"
	}
	return path
}

func init() {
	enrichCmd.Flags().StringArrayVarP(&enrichFields, "field", "f", nil, "address field to geocode (repeatable; default geocode.fields)")
	enrichCmd.Flags().IntVar(&enrichThreads, "threads", 8, "concurrent lookups (default geocode.threads)")
	enrichCmd.Flags().IntVar(&enrichWindow, "window", 0, "records in flight, 0 = threads (default geocode.window)")
	enrichCmd.Flags().StringVar(&enrichNullValue, "null-value", "", "value for derived fields that could not be resolved (default geocode.null_value)")
	enrichCmd.Flags().StringVar(&enrichUnit, "unit", "mi", "viewport area unit: mi or km (default geocode.unit)")
	enrichCmd.Flags().StringVar(&enrichFormat, "format", "csv", "input format: csv, jsonl or xlsx (default from extension or geocode.format)")
	enrichCmd.Flags().StringVar(&enrichOutputFormat, "output-format", "", "output format (default from extension or input format)")
	enrichCmd.Flags().StringVarP(&enrichInput, "input", "i", "", "input file (default stdin)")
	enrichCmd.Flags().StringVarP(&enrichOutput, "output", "o", "", "output file (default stdout)")
	enrichCmd.Flags().StringVar(&enrichCharset, "charset", "", "CSV input charset, e.g. iso-8859-1 (default utf-8)")
	enrichCmd.Flags().StringVar(&enrichSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	enrichCmd.Flags().StringVar(&enrichAPIKey, "api-key", "", "provider API key (default geocode.api_key, then credential store)")
	rootCmd.AddCommand(enrichCmd)
}
