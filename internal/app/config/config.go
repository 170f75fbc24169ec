package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 分类器调用方式
const (
	ClassifierModeInline = "inline" // API 进程内同步调用
	ClassifierModeQueue  = "queue"  // 经 lmstfy 队列由 worker 调用
)

// EnvPrefix 环境变量前缀，如 ECG_CLASSIFIER_BASE_URL
const EnvPrefix = "ECG"

// Config 应用配置（apiserver 与 worker 共用）
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Lmstfy     LmstfyConfig     `mapstructure:"lmstfy"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	Workers    []WorkerConfig   `mapstructure:"workers"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IngestConfig 数据接入配置
type IngestConfig struct {
	MaxBytes         int64 `mapstructure:"max_bytes"`         // 上传文件大小上限
	LenientCSV       bool  `mapstructure:"lenient_csv"`       // 静默丢弃格式错误的 CSV 行
	AllowPlaceholder bool  `mapstructure:"allow_placeholder"` // 占位文本返回合成数据
	SampleSeed       int64 `mapstructure:"sample_seed"`       // 合成数据默认种子，0 表示按时间
}

// ClassifierConfig 远程分类器配置
type ClassifierConfig struct {
	Mode    string        `mapstructure:"mode"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig Redis 配置，Addr 为空时使用进程内存储
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	Namespace     string        `mapstructure:"namespace"`
	Token         string        `mapstructure:"token"`
	Queue         string        `mapstructure:"queue"`
	CallbackQueue string        `mapstructure:"callback_queue"`
	JobTTL        time.Duration `mapstructure:"job_ttl"`
	Timeout       time.Duration `mapstructure:"timeout"`       // 回调消费拉取超时
	TTR           time.Duration `mapstructure:"ttr"`           // 回调消费 Time-To-Run
	PollInterval  time.Duration `mapstructure:"poll_interval"` // 回调消费出错后的等待
}

// AnalysisConfig 分析状态配置
type AnalysisConfig struct {
	TTL            time.Duration `mapstructure:"ttl"`              // 分析记录保留时长
	SessionLockTTL time.Duration `mapstructure:"session_lock_ttl"` // 会话提交锁过期时间
	MaxWait        time.Duration `mapstructure:"max_wait"`         // Smart Wait 上限
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name          string           `mapstructure:"name"`
	QueueName     string           `mapstructure:"queue_name"`
	CallbackQueue string           `mapstructure:"callback_queue"`
	Subscriber    SubscriberConfig `mapstructure:"subscriber"`
	Processor     ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取间隔
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ecg-diagnostic")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("ingest.max_bytes", 8<<20)
	v.SetDefault("ingest.lenient_csv", false)
	v.SetDefault("ingest.allow_placeholder", false)
	v.SetDefault("ingest.sample_seed", 0)

	v.SetDefault("classifier.mode", ClassifierModeInline)
	v.SetDefault("classifier.base_url", "http://localhost:5000")
	v.SetDefault("classifier.timeout", 30*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("lmstfy.host", "")
	v.SetDefault("lmstfy.port", 7777)
	v.SetDefault("lmstfy.namespace", "ecg")
	v.SetDefault("lmstfy.token", "")
	v.SetDefault("lmstfy.queue", "ecg_classify")
	v.SetDefault("lmstfy.callback_queue", "ecg_classify_callback")
	v.SetDefault("lmstfy.job_ttl", time.Hour)
	v.SetDefault("lmstfy.timeout", 3*time.Second)
	v.SetDefault("lmstfy.ttr", 30*time.Second)
	v.SetDefault("lmstfy.poll_interval", time.Second)

	v.SetDefault("analysis.ttl", 24*time.Hour)
	v.SetDefault("analysis.session_lock_ttl", 2*time.Minute)
	v.SetDefault("analysis.max_wait", 30*time.Second)
}

// Load 从配置文件加载配置，path 为空时只使用默认值与环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// UsesQueue 是否通过队列调度分类
func (c *Config) UsesQueue() bool {
	return c.Classifier.Mode == ClassifierModeQueue
}

// ValidateServer 验证 apiserver 配置
func (c *Config) ValidateServer() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Ingest.MaxBytes <= 0 {
		return fmt.Errorf("ingest.max_bytes must be positive")
	}
	if c.Analysis.TTL <= 0 {
		return fmt.Errorf("analysis.ttl must be positive")
	}
	if c.Analysis.SessionLockTTL <= 0 {
		return fmt.Errorf("analysis.session_lock_ttl must be positive")
	}

	switch c.Classifier.Mode {
	case ClassifierModeInline:
		if c.Classifier.BaseURL == "" {
			return fmt.Errorf("classifier.base_url is required in inline mode")
		}
	case ClassifierModeQueue:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required in queue mode")
		}
		if err := c.validateLmstfy(); err != nil {
			return err
		}
		if c.Lmstfy.Queue == "" || c.Lmstfy.CallbackQueue == "" {
			return fmt.Errorf("lmstfy.queue and lmstfy.callback_queue are required in queue mode")
		}
	default:
		return fmt.Errorf("classifier.mode must be %q or %q, got %q", ClassifierModeInline, ClassifierModeQueue, c.Classifier.Mode)
	}

	return nil
}

// ValidateWorker 验证 worker 配置
func (c *Config) ValidateWorker() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Classifier.BaseURL == "" {
		return fmt.Errorf("classifier.base_url is required")
	}
	if err := c.validateLmstfy(); err != nil {
		return err
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}

	for i, w := range c.Workers {
		if w.Name == "" || w.QueueName == "" {
			return fmt.Errorf("workers[%d]: name and queue_name are required", i)
		}
		if w.CallbackQueue == "" {
			return fmt.Errorf("workers[%d]: callback_queue is required", i)
		}
		if w.Subscriber.Threads <= 0 || w.Processor.Threads <= 0 {
			return fmt.Errorf("workers[%d]: subscriber and processor threads must be positive", i)
		}
		if w.Processor.Timeout <= 0 {
			return fmt.Errorf("workers[%d]: processor.timeout must be positive", i)
		}
	}

	return nil
}

func (c *Config) validateLmstfy() error {
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if c.Lmstfy.Token == "" {
		return fmt.Errorf("lmstfy.token is required")
	}
	return nil
}
