// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cardinalhq/karld/internal/constants"
	"github.com/cardinalhq/karld/internal/filereader"
	"github.com/cardinalhq/karld/internal/filewriter"
	"github.com/cardinalhq/karld/internal/runner"
)

// Config aggregates configuration for karld.
type Config struct {
	Reader ReaderConfig `mapstructure:"reader"`
	CSV    CSVConfig    `mapstructure:"csv"`
	Shard  ShardConfig  `mapstructure:"shard"`
	Runner RunnerConfig `mapstructure:"runner"`
}

// ReaderConfig controls how input files are decoded.
type ReaderConfig struct {
	// Encoding is a WHATWG encoding label such as "utf-8" or "windows-1252".
	Encoding string `mapstructure:"encoding"`
	// Compression is "", "none", "gzip" or "zstd". Empty detects it from
	// the file extension.
	Compression string `mapstructure:"compression"`
}

// CSVConfig is the delimited-text dialect used for reading and writing.
type CSVConfig struct {
	Delimiter        string `mapstructure:"delimiter"`
	Comment          string `mapstructure:"comment"`
	LazyQuotes       bool   `mapstructure:"lazy_quotes"`
	TrimLeadingSpace bool   `mapstructure:"trim_leading_space"`
	QuoteAll         bool   `mapstructure:"quote_all"`
	UseCRLF          bool   `mapstructure:"use_crlf"`
}

type ShardConfig struct {
	MaxLines       int    `mapstructure:"max_lines"`
	LineBufferSize int    `mapstructure:"line_buffer_size"`
	Encoding       string `mapstructure:"encoding"`
	Compression    string `mapstructure:"compression"`
}

type RunnerConfig struct {
	// Workers is the pool size. Zero means GOMAXPROCS.
	Workers   int  `mapstructure:"workers"`
	BatchSize int  `mapstructure:"batch_size"`
	Pooled    bool `mapstructure:"pooled"`
	// ProgressInterval is how often long runs log progress. Zero disables it.
	ProgressInterval time.Duration `mapstructure:"progress_interval"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Reader: ReaderConfig{Encoding: filereader.DefaultEncoding},
		CSV:    CSVConfig{Delimiter: ","},
		Shard: ShardConfig{
			MaxLines:       constants.DefaultShardMaxLines,
			LineBufferSize: constants.LineBufferSize,
			Encoding:       filereader.DefaultEncoding,
		},
		Runner: RunnerConfig{
			BatchSize:        constants.DefaultBatchSize,
			Pooled:           true,
			ProgressInterval: 10 * time.Second,
		},
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "KARLD" and the dot character
// in keys is replaced by an underscore. For example, "shard.max_lines"
// becomes "KARLD_SHARD_MAX_LINES".
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("karld")
	v.AddConfigPath(".")
	v.SetEnvPrefix("KARLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that are parsed lazily elsewhere.
func (c *Config) Validate() error {
	if _, err := c.Dialect(); err != nil {
		return err
	}
	if _, err := filereader.ParseCompression(c.Reader.Compression); err != nil {
		return fmt.Errorf("reader.compression: %w", err)
	}
	if _, err := filereader.ParseCompression(c.Shard.Compression); err != nil {
		return fmt.Errorf("shard.compression: %w", err)
	}
	if err := checkEncoding(c.Reader.Encoding); err != nil {
		return fmt.Errorf("reader.encoding: %w", err)
	}
	if err := checkEncoding(c.Shard.Encoding); err != nil {
		return fmt.Errorf("shard.encoding: %w", err)
	}
	if c.Shard.MaxLines < 0 {
		return fmt.Errorf("shard.max_lines must not be negative, got %d", c.Shard.MaxLines)
	}
	if c.Runner.Workers < 0 {
		return fmt.Errorf("runner.workers must not be negative, got %d", c.Runner.Workers)
	}
	return nil
}

func checkEncoding(name string) error {
	if filereader.IsUTF8(name) {
		return nil
	}
	_, err := filereader.LookupEncoding(name)
	return err
}

// Dialect builds the CSV dialect described by the csv section.
func (c *Config) Dialect() (filereader.Dialect, error) {
	d := filereader.DefaultDialect()
	comma, err := filereader.ParseDelimiter(c.CSV.Delimiter)
	if err != nil {
		return d, fmt.Errorf("csv.delimiter: %w", err)
	}
	d.Comma = comma
	if c.CSV.Comment != "" {
		comment, err := filereader.ParseDelimiter(c.CSV.Comment)
		if err != nil {
			return d, fmt.Errorf("csv.comment: %w", err)
		}
		d.Comment = comment
	}
	d.LazyQuotes = c.CSV.LazyQuotes
	d.TrimLeadingSpace = c.CSV.TrimLeadingSpace
	d.QuoteAll = c.CSV.QuoteAll
	d.UseCRLF = c.CSV.UseCRLF
	if err := d.Validate(); err != nil {
		return d, fmt.Errorf("csv: %w", err)
	}
	return d, nil
}

// OpenOptions returns the reader settings for filereader.Open.
func (c *Config) OpenOptions() filereader.OpenOptions {
	comp, _ := filereader.ParseCompression(c.Reader.Compression)
	return filereader.OpenOptions{Encoding: c.Reader.Encoding, Compression: comp}
}

// SplitOptions returns shard settings writing base into outDir.
func (c *Config) SplitOptions(outDir, base string) filewriter.SplitOptions {
	comp, _ := filereader.ParseCompression(c.Shard.Compression)
	return filewriter.SplitOptions{
		OutDir:         outDir,
		BaseName:       base,
		MaxLines:       c.Shard.MaxLines,
		LineBufferSize: c.Shard.LineBufferSize,
		Encoding:       c.Shard.Encoding,
		Compression:    comp,
	}
}

// CSVOptions combines the reader, csv and shard sections for the runner's
// CSV helpers.
func (c *Config) CSVOptions() (runner.CSVOptions, error) {
	d, err := c.Dialect()
	if err != nil {
		return runner.CSVOptions{}, err
	}
	comp, _ := filereader.ParseCompression(c.Shard.Compression)
	return runner.CSVOptions{
		Dialect: d,
		Open:    c.OpenOptions(),
		Write: filewriter.FileOptions{
			LineBufferSize: c.Shard.LineBufferSize,
			Encoding:       c.Shard.Encoding,
			Compression:    comp,
		},
	}, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
