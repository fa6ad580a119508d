package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lalith1997/quantscreen/internal/contracts"
	"github.com/lalith1997/quantscreen/internal/selection"
)

// LoadScreen reads a screen YAML file and returns the resolved Screen with raw bytes
func LoadScreen(path string) (*contracts.Screen, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	screen, err := ParseScreen(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return screen, data, nil
}

// ParseScreen decodes and validates a screen definition
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func ParseScreen(data []byte) (*contracts.Screen, error) {
	var file ScreenFile
	if err := decodeStrict(data, &file); err != nil {
		return nil, err
	}

	screen, err := resolveScreen(file.Preset, file.Screen)
	if err != nil {
		return nil, err
	}
	if err := ValidateScreen(screen); err != nil {
		return nil, err
	}
	resolved := screen.WithDefaults()
	return &resolved, nil
}

// LoadBacktest reads a backtest YAML file and returns the resolved config with raw bytes
func LoadBacktest(path string) (*contracts.BacktestConfig, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := ParseBacktest(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, data, nil
}

// ParseBacktest decodes and validates a backtest definition
func ParseBacktest(data []byte) (*contracts.BacktestConfig, error) {
	var file BacktestFile
	if err := decodeStrict(data, &file); err != nil {
		return nil, err
	}

	screen, err := resolveScreen(file.Preset, file.Screen)
	if err != nil {
		return nil, err
	}
	if screen.Name == "" {
		screen.Name = file.Name
	}

	cfg := file.BacktestConfig
	cfg.Screen = screen.WithDefaults()
	if err := ValidateBacktest(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeStrict(data []byte, out interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(out); err != nil {
		return ValidationError{"yaml", err.Error()}
	}
	return nil
}

func resolveScreen(preset string, screen contracts.Screen) (contracts.Screen, error) {
	if preset == "" {
		return screen, nil
	}
	base, ok := selection.LookupPreset(preset)
	if !ok {
		return contracts.Screen{}, ValidationError{"preset", fmt.Sprintf("unknown preset %q", preset)}
	}
	return mergeScreen(base, screen), nil
}

// Hash generates SHA256 hash of a definition's canonical JSON
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(v interface{}) (string, error) {
	// Struct → JSON (결정적 순서)
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewDecisionSnapshot records a resolved definition with the YAML it came from
func NewDecisionSnapshot(name string, resolved interface{}, yamlData []byte) (*DecisionSnapshot, error) {
	hash, err := Hash(resolved)
	if err != nil {
		return nil, err
	}

	return &DecisionSnapshot{
		ConfigHash: hash,
		ConfigYAML: string(yamlData),
		Name:       name,
		CreatedAt:  time.Now(),
	}, nil
}
