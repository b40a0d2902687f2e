package screenconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML file over the defaults and returns the Config
// with the raw bytes. KnownFields(true) fails fast on typos and
// unused fields.
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("parse screen config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, data, err
	}

	return cfg, data, nil
}

// LoadOrDefault loads the file when it exists and falls back to the
// defaults when it does not. Any other read or parse error still
// fails.
func LoadOrDefault(path string) (*Config, []byte, error) {
	cfg, data, err := Load(path)
	if err != nil && os.IsNotExist(err) {
		return Default(), nil, nil
	}
	return cfg, data, err
}

// Hash generates a SHA256 hash from the Config (canonical JSON).
// Struct marshaling keeps field order deterministic, so the hash is
// reproducible across runs.
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Snapshot pins the exact parameters a run used, for provenance
type Snapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	ScreenID   string    `json:"screen_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewSnapshot creates a snapshot from a loaded config
func NewSnapshot(cfg *Config, yamlData []byte) (*Snapshot, error) {
	hash, err := Hash(cfg)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		ScreenID:   cfg.Meta.ScreenID,
		CreatedAt:  time.Now(),
	}, nil
}
