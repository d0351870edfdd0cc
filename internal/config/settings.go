package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/unkn0wn-root/daakiya/internal/errdef"
)

const (
	SettingsFormatTOML SettingsFormat = "toml"
	SettingsFormatJSON SettingsFormat = "json"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultHistoryLimit = 200
)

// Duration decodes "15s" style strings from both formats.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	if len(bytes.TrimSpace(text)) == 0 {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(string(bytes.TrimSpace(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type Settings struct {
	Timeout         Duration `json:"timeout"          toml:"timeout"`
	FollowRedirects *bool    `json:"follow_redirects" toml:"follow_redirects"`
	Insecure        bool     `json:"insecure"         toml:"insecure"`
	Proxy           string   `json:"proxy"            toml:"proxy"`
	HistoryFile     string   `json:"history_file"     toml:"history_file"`
	HistoryLimit    int      `json:"history_limit"    toml:"history_limit"`
	VariablesFile   string   `json:"variables_file"   toml:"variables_file"`
}

func DefaultSettings() Settings {
	follow := true
	return Settings{
		Timeout:         Duration{DefaultTimeout},
		FollowRedirects: &follow,
		HistoryLimit:    DefaultHistoryLimit,
	}
}

// Normalise fills zero values with defaults.
func (s Settings) Normalise() Settings {
	def := DefaultSettings()
	if s.Timeout.Duration <= 0 {
		s.Timeout = def.Timeout
	}
	if s.FollowRedirects == nil {
		s.FollowRedirects = def.FollowRedirects
	}
	if s.HistoryLimit <= 0 {
		s.HistoryLimit = def.HistoryLimit
	}
	return s
}

func (s Settings) Follow() bool {
	return s.FollowRedirects == nil || *s.FollowRedirects
}

// HistoryPath resolves history_file relative to the config dir.
func (s Settings) HistoryPath() string {
	if s.HistoryFile == "" {
		return DefaultHistoryPath()
	}
	if filepath.IsAbs(s.HistoryFile) {
		return s.HistoryFile
	}
	return filepath.Join(Dir(), s.HistoryFile)
}

type SettingsFormat string
type SettingsHandle struct {
	Path   string
	Format SettingsFormat
}

// tries loading TOML first, then JSON, then returns defaults if neither exists.
// parse errors fail immediately but missing files just skip to the next format.
func LoadSettings() (Settings, SettingsHandle, error) {
	dir := Dir()
	candidates := []SettingsHandle{
		{Path: filepath.Join(dir, settingsTOML), Format: SettingsFormatTOML},
		{Path: filepath.Join(dir, settingsJSON), Format: SettingsFormatJSON},
	}

	var accumulated error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			accumulated = errors.Join(
				accumulated,
				errdef.Wrap(errdef.CodeFilesystem, err, "read settings %q", candidate.Path),
			)
			continue
		}

		settings, err := decodeSettings(data, candidate.Format)
		if err != nil {
			return Settings{}, SettingsHandle{}, errdef.Wrap(
				errdef.CodeConfig,
				err,
				"parse settings %q",
				candidate.Path,
			)
		}
		return settings.Normalise(), candidate, nil
	}

	if accumulated != nil {
		return Settings{}, SettingsHandle{}, accumulated
	}

	return DefaultSettings(), SettingsHandle{
		Path:   candidates[0].Path,
		Format: SettingsFormatTOML,
	}, nil
}

func decodeSettings(data []byte, format SettingsFormat) (Settings, error) {
	var settings Settings
	switch format {
	case SettingsFormatTOML:
		if err := toml.Unmarshal(data, &settings); err != nil {
			return Settings{}, err
		}
	case SettingsFormatJSON:
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&settings); err != nil {
			return Settings{}, err
		}
	default:
		return Settings{}, errdef.New(errdef.CodeConfig, "unsupported settings format %q", format)
	}
	return settings, nil
}

func SaveSettings(settings Settings, handle SettingsHandle) error {
	settings = settings.Normalise()
	path := handle.Path
	format := handle.Format
	if path == "" {
		path = filepath.Join(Dir(), settingsTOML)
	}
	if format == "" {
		format = SettingsFormatTOML
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "ensure settings directory")
	}

	var (
		data []byte
		err  error
	)

	switch format {
	case SettingsFormatTOML:
		data, err = toml.Marshal(settings)
	case SettingsFormatJSON:
		buffer := &bytes.Buffer{}
		encoder := json.NewEncoder(buffer)
		encoder.SetIndent("", "  ")
		if err = encoder.Encode(settings); err == nil {
			data = buffer.Bytes()
		}
	default:
		return errdef.New(errdef.CodeConfig, "unsupported settings format %q", format)
	}
	if err != nil {
		return errdef.Wrap(errdef.CodeConfig, err, "encode settings")
	}

	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write settings %q", path)
	}
	return nil
}

// write to temp file then rename so readers never see partial data.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".daakiya-settings-*.tmp")
	if err != nil {
		return err
	}

	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		closeErr := tmp.Close()
		if closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	if err := tmp.Chmod(perm); err != nil {
		closeErr := tmp.Close()
		if closeErr != nil {
			return errors.Join(err, closeErr)
		}
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// Keys lists the names accepted by Set, in file order.
func Keys() []string {
	return []string{
		"timeout",
		"follow_redirects",
		"insecure",
		"proxy",
		"history_file",
		"history_limit",
		"variables_file",
	}
}

// Set assigns one field by its file key. An empty value resets the field.
func (s *Settings) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "timeout":
		var d Duration
		if err := d.UnmarshalText([]byte(value)); err != nil {
			return errdef.Wrap(errdef.CodeConfig, err, "invalid timeout %q", value)
		}
		s.Timeout = d
	case "follow_redirects":
		if value == "" {
			s.FollowRedirects = nil
			return nil
		}
		v, err := strconv.ParseBool(value)
		if err != nil {
			return errdef.Wrap(errdef.CodeConfig, err, "invalid follow_redirects %q", value)
		}
		s.FollowRedirects = &v
	case "insecure":
		if value == "" {
			s.Insecure = false
			return nil
		}
		v, err := strconv.ParseBool(value)
		if err != nil {
			return errdef.Wrap(errdef.CodeConfig, err, "invalid insecure %q", value)
		}
		s.Insecure = v
	case "proxy":
		s.Proxy = value
	case "history_file":
		s.HistoryFile = value
	case "history_limit":
		if value == "" {
			s.HistoryLimit = 0
			return nil
		}
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return errdef.New(errdef.CodeConfig, "invalid history_limit %q", value)
		}
		s.HistoryLimit = v
	case "variables_file":
		s.VariablesFile = value
	default:
		return errdef.New(errdef.CodeConfig, "unknown setting %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	return nil
}
