package vars

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/daakiya/internal/errdef"
	"github.com/unkn0wn-root/daakiya/internal/restfile"
)

type FileFormat string

const (
	FormatJSON   FileFormat = "json"
	FormatYAML   FileFormat = "yaml"
	FormatDotEnv FileFormat = "dotenv"
)

// fileEntry mirrors restfile.KeyValue but lets "enabled" default to true when omitted.
type fileEntry struct {
	ID      string `json:"id,omitempty"      yaml:"id,omitempty"`
	Key     string `json:"key"               yaml:"key"`
	Value   string `json:"value"             yaml:"value"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

func DetectFormat(path string) FileFormat {
	base := strings.ToLower(filepath.Base(path))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	if base == ".env" || strings.HasPrefix(base, ".env.") || strings.HasSuffix(base, ".env") {
		return FormatDotEnv
	}
	return FormatJSON
}

// LoadFile reads an ordered variable environment. Entries without an id get a fresh one.
func LoadFile(path string) ([]restfile.KeyValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read variables %s", path)
	}
	env, err := Decode(data, DetectFormat(path))
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "parse variables %s", path)
	}
	return env, nil
}

func Decode(data []byte, format FileFormat) ([]restfile.KeyValue, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []restfile.KeyValue{}, nil
	}
	switch format {
	case FormatYAML:
		return decodeYAML(data)
	case FormatDotEnv:
		return decodeDotEnv(data)
	default:
		return decodeJSON(data)
	}
}

func decodeJSON(data []byte) ([]restfile.KeyValue, error) {
	if !gjson.ValidBytes(data) {
		return nil, errdef.New(errdef.CodeParse, "invalid json")
	}
	root := gjson.ParseBytes(data)
	switch {
	case root.IsArray():
		var entries []fileEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		return fromEntries(entries), nil
	case root.IsObject():
		// gjson walks members in document order; a map would lose it.
		var out []restfile.KeyValue
		root.ForEach(func(key, value gjson.Result) bool {
			val := value.String()
			if value.Type == gjson.JSON {
				val = value.Raw
			}
			out = append(out, restfile.NewKeyValue(key.String(), val))
			return true
		})
		return out, nil
	default:
		return nil, errdef.New(errdef.CodeParse, "expected array or object of variables")
	}
}

func decodeYAML(data []byte) ([]restfile.KeyValue, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return []restfile.KeyValue{}, nil
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var entries []fileEntry
		if err := root.Decode(&entries); err != nil {
			return nil, err
		}
		return fromEntries(entries), nil
	case yaml.MappingNode:
		out := make([]restfile.KeyValue, 0, len(root.Content)/2)
		for i := 0; i+1 < len(root.Content); i += 2 {
			k, v := root.Content[i], root.Content[i+1]
			val := v.Value
			if v.Kind != yaml.ScalarNode {
				raw, err := yaml.Marshal(v)
				if err != nil {
					return nil, err
				}
				val = strings.TrimSpace(string(raw))
			}
			out = append(out, restfile.NewKeyValue(k.Value, val))
		}
		return out, nil
	default:
		return nil, errdef.New(errdef.CodeParse, "expected sequence or mapping of variables")
	}
}

func decodeDotEnv(data []byte) ([]restfile.KeyValue, error) {
	values, err := godotenv.UnmarshalBytes(data)
	if err != nil {
		return nil, err
	}
	// dotenv has no stable order once parsed; sort for determinism.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]restfile.KeyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, restfile.NewKeyValue(k, values[k]))
	}
	return out, nil
}

func fromEntries(entries []fileEntry) []restfile.KeyValue {
	out := make([]restfile.KeyValue, 0, len(entries))
	for _, e := range entries {
		kv := restfile.KeyValue{ID: e.ID, Key: e.Key, Value: e.Value, Enabled: true}
		if e.Enabled != nil {
			kv.Enabled = *e.Enabled
		}
		if kv.ID == "" {
			kv.ID = restfile.NewID()
		}
		out = append(out, kv)
	}
	return out
}

// SaveFile writes env in the format implied by path. Dotenv output drops
// disabled entries and keeps the last value of duplicate keys.
func SaveFile(path string, env []restfile.KeyValue) error {
	data, err := Encode(env, DetectFormat(path))
	if err != nil {
		return errdef.Wrap(errdef.CodeParse, err, "encode variables")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "create variables dir")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "write variables tmp")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errdef.Wrap(errdef.CodeFilesystem, err, "replace variables file")
	}
	return nil
}

func Encode(env []restfile.KeyValue, format FileFormat) ([]byte, error) {
	switch format {
	case FormatDotEnv:
		values := make(map[string]string, len(env))
		for _, kv := range env {
			if kv.Active() {
				values[kv.Key] = kv.Value
			}
		}
		s, err := godotenv.Marshal(values)
		if err != nil {
			return nil, err
		}
		return []byte(s + "\n"), nil
	case FormatYAML:
		return yaml.Marshal(toEntries(env))
	default:
		return json.MarshalIndent(toEntries(env), "", "  ")
	}
}

func toEntries(env []restfile.KeyValue) []fileEntry {
	out := make([]fileEntry, 0, len(env))
	for _, kv := range env {
		enabled := kv.Enabled
		out = append(out, fileEntry{ID: kv.ID, Key: kv.Key, Value: kv.Value, Enabled: &enabled})
	}
	return out
}

// ParseAssignments turns "key=value" strings into enabled entries, keeping order.
func ParseAssignments(items []string) ([]restfile.KeyValue, error) {
	out := make([]restfile.KeyValue, 0, len(items))
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		if !ok || key == "" {
			return nil, errdef.New(errdef.CodeParse, "invalid variable assignment %q (want key=value)", item)
		}
		out = append(out, restfile.NewKeyValue(key, value))
	}
	return out, nil
}
