// Package config 提供了统一的配置加载、校验与热更新能力.
// 配置文件为 TOML，环境变量以 PMERGEME_ 为前缀覆盖同名键（如 PMERGEME_LOG_LEVEL）。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/wyfcoding/pmergeme/logging"
)

// EnvPrefix 环境变量前缀。
const EnvPrefix = "PMERGEME"

// Config 全局顶级配置结构.
type Config struct {
	Version string          `mapstructure:"version" toml:"version" json:"version"`
	Log     LogConfig       `mapstructure:"log"     toml:"log"     json:"log"`
	Sort    SortConfig      `mapstructure:"sort"    toml:"sort"    json:"sort"`
	Bench   BenchConfig     `mapstructure:"bench"   toml:"bench"   json:"bench"`
	Metrics MetricsConfig   `mapstructure:"metrics" toml:"metrics" json:"metrics"`
	Tracing TracingConfig   `mapstructure:"tracing" toml:"tracing" json:"tracing"`
	RunID   SnowflakeConfig `mapstructure:"runid"   toml:"runid"   json:"runid"`
}

// LogConfig 日志输出与切割配置。
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       json:"level"       validate:"omitempty,oneof=debug info warn warning error"`
	File       string `mapstructure:"file"        toml:"file"        json:"file"`                               // 日志文件路径。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"    json:"max_size"    validate:"gte=0"`       // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups" json:"max_backups" validate:"gte=0"`       // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"     json:"max_age"     validate:"gte=0"`       // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"    json:"compress"`                           // 是否启用压缩。
	Console    bool   `mapstructure:"console"     toml:"console"     json:"console"`                            // 同时输出文本日志到 stderr。
}

// SortConfig 排序命令配置。
type SortConfig struct {
	Backings        []string `mapstructure:"backings"         toml:"backings"         json:"backings"         validate:"min=1,dive,oneof=slice deque"`
	Preview         int      `mapstructure:"preview"          toml:"preview"          json:"preview"          validate:"gte=0"` // Before/After 行最多展示的元素个数。
	ShowComparisons bool     `mapstructure:"show_comparisons" toml:"show_comparisons" json:"show_comparisons"`
	StrictBound     bool     `mapstructure:"strict_bound"     toml:"strict_bound"     json:"strict_bound"` // 超过理论上界时视为失败。
}

// BenchConfig 随机压测配置。
type BenchConfig struct {
	Sizes     []int  `mapstructure:"sizes"      toml:"sizes"      json:"sizes"      validate:"min=1,dive,gt=0"`
	Rounds    int    `mapstructure:"rounds"     toml:"rounds"     json:"rounds"     validate:"gt=0"`
	Workers   int    `mapstructure:"workers"    toml:"workers"    json:"workers"    validate:"gt=0"`
	QueueSize int    `mapstructure:"queue_size" toml:"queue_size" json:"queue_size" validate:"gt=0"`
	Seed      uint64 `mapstructure:"seed"       toml:"seed"       json:"seed"` // 0 表示按当前时间取种子，实际种子写入结果，0 本身不可复现。
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
type MetricsConfig struct {
	Port    string `mapstructure:"port"    toml:"port"    json:"port"    validate:"required_if=Enabled true"`
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled"`
}

// TracingConfig 链路追踪配置.
type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"  toml:"service_name"  json:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint" toml:"otlp_endpoint" json:"otlp_endpoint" validate:"required_if=Enabled true"`
	SamplerRatio float64 `mapstructure:"sampler_ratio" toml:"sampler_ratio" json:"sampler_ratio" validate:"gte=0,lte=1"`
	Enabled      bool    `mapstructure:"enabled"       toml:"enabled"       json:"enabled"`
}

// SnowflakeConfig 运行 ID 生成器配置.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time" json:"start_time"`
	Type      string `mapstructure:"type"       toml:"type"       json:"type"       validate:"omitempty,oneof=snowflake sonyflake"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id" json:"machine_id" validate:"gte=0,lte=65535"`
}

// Default 返回一份可以直接使用的默认配置。
func Default() Config {
	return Config{
		Version: "dev",
		Log: LogConfig{
			Level:      "warn",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
		},
		Sort: SortConfig{
			Backings: []string{"slice", "deque"},
			Preview:  10,
		},
		Bench: BenchConfig{
			Sizes:     []int{21, 100, 3000},
			Rounds:    5,
			Workers:   4,
			QueueSize: 64,
		},
		Metrics: MetricsConfig{
			Port: "9090",
		},
		Tracing: TracingConfig{
			ServiceName:  "pmergeme",
			SamplerRatio: 1.0,
		},
		RunID: SnowflakeConfig{
			Type:      "snowflake",
			MachineID: 1,
		},
	}
}

// setDefaults 将默认值注册到 viper，使环境变量覆盖对未出现在文件中的键同样生效。
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("version", d.Version)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
	v.SetDefault("log.console", d.Log.Console)
	v.SetDefault("sort.backings", d.Sort.Backings)
	v.SetDefault("sort.preview", d.Sort.Preview)
	v.SetDefault("sort.show_comparisons", d.Sort.ShowComparisons)
	v.SetDefault("sort.strict_bound", d.Sort.StrictBound)
	v.SetDefault("bench.sizes", d.Bench.Sizes)
	v.SetDefault("bench.rounds", d.Bench.Rounds)
	v.SetDefault("bench.workers", d.Bench.Workers)
	v.SetDefault("bench.queue_size", d.Bench.QueueSize)
	v.SetDefault("bench.seed", d.Bench.Seed)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.port", d.Metrics.Port)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sampler_ratio", d.Tracing.SamplerRatio)
	v.SetDefault("runid.type", d.RunID.Type)
	v.SetDefault("runid.machine_id", d.RunID.MachineID)
	v.SetDefault("runid.start_time", d.RunID.StartTime)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load 读取配置文件（path 为空时仅使用默认值与环境变量）、反序列化并校验.
func Load(path string, conf *Config) error {
	v := newViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}
	return decode(v, conf)
}

func decode(v *viper.Viper, conf *Config) error {
	var next Config
	if err := v.Unmarshal(&next); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := Validate(&next); err != nil {
		return err
	}
	*conf = next
	return nil
}

// Validate 按结构体标签校验配置.
func Validate(conf *Config) error {
	if err := validator.New().Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Watch 监听配置文件变化。每次变化重新解析并校验，成功后同步日志级别并依次调用 hooks。
// 解析失败时保留旧配置，只记录错误。
func Watch(path string, hooks ...func(*Config)) error {
	if path == "" {
		return nil
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config error: %w", err)
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		slog.Info("detecting config change", "file", event.Name)
		// 编辑器保存时常先截断再写入，等待写入完成后重新读取。
		const debounceTimeout = 200 * time.Millisecond
		time.Sleep(debounceTimeout)
		if err := v.ReadInConfig(); err != nil {
			slog.Error("reload config failed", "error", err)
			return
		}

		var next Config
		if err := decode(v, &next); err != nil {
			slog.Error("reload config failed", "error", err)
			return
		}
		logging.SetLevel(next.Log.Level)
		for _, hook := range hooks {
			hook(&next)
		}
		slog.Info("config hot-reloaded and validated successfully")
	})
	v.WatchConfig()
	return nil
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)
		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.Marshal(configMap)
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)
		return
	}

	slog.Debug("current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "token", "endpoint"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}
		for _, sensitiveKey := range sensitiveKeys {
			if s, ok := val.(string); ok && s != "" && strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}
