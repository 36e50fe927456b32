package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации всей платформы.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Store     StoreConfig     `mapstructure:"store"`
	Monitors  MonitorsConfig  `mapstructure:"monitors"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Intel     IntelConfig     `mapstructure:"intel"`
}

// ServerConfig описывает настройки HTTP-сервера.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// AuthConfig — демо-учетка консоли и параметры HS256 токена.
// Корректность аутентификации вне скоупа ядра, но REST-поверхность
// закрыта токеном так же, как в остальных сервисах платформы.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	AdminUser  string        `mapstructure:"admin_user"`
	AdminPass  string        `mapstructure:"admin_pass"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// StoreConfig — емкости кольцевых историй агрегирующего стора.
type StoreConfig struct {
	ThreatHistory int `mapstructure:"threat_history"` // ~100
	PacketHistory int `mapstructure:"packet_history"` // ~1000
	MetricHistory int `mapstructure:"metric_history"` // ~1000
	AlertHistory  int `mapstructure:"alert_history"`

	// Буфер неблокирующего пакетного инжестора
	PacketBufferSize int           `mapstructure:"packet_buffer_size"`
	PacketFlushEvery time.Duration `mapstructure:"packet_flush_every"`
	PacketFlushBatch int           `mapstructure:"packet_flush_batch"`
}

// MonitorsConfig — периоды опроса сэмплеров по доменам.
// Сеть и кандидаты в угрозы опрашиваются чаще, чем FL-раунды.
type MonitorsConfig struct {
	SystemInterval  time.Duration `mapstructure:"system_interval"`
	NetworkInterval time.Duration `mapstructure:"network_interval"`
	FLInterval      time.Duration `mapstructure:"fl_interval"`
}

// PipelineConfig — пороги скоринга и параметры авто-митигации.
type PipelineConfig struct {
	FlagThreshold      float64       `mapstructure:"flag_threshold"`       // score > 0.6 -> Flagged
	MitigationMinDelay time.Duration `mapstructure:"mitigation_min_delay"` // нижняя граница задержки ремедиации
	MitigationMaxDelay time.Duration `mapstructure:"mitigation_max_delay"` // верхняя граница

	// Настройки Circuit Breaker вокруг респондера митигации
	CBMaxRequests uint32        `mapstructure:"cb_max_requests"`
	CBInterval    time.Duration `mapstructure:"cb_interval"`
	CBTimeout     time.Duration `mapstructure:"cb_timeout"`
}

// BroadcastConfig — кадансы push-канала.
type BroadcastConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"` // серверный фан-аут
	SendBuffer   int           `mapstructure:"send_buffer"`   // исходящий буфер на соединение
	InboundRate  float64       `mapstructure:"inbound_rate"`  // лимит входящих сообщений в секунду
	InboundBurst int           `mapstructure:"inbound_burst"`
}

// IntelConfig — опциональная подписка на фид threat intelligence через Redis.
// Пустой Addr означает работу только на встроенном сиде.
type IntelConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
	SetKey   string `mapstructure:"set_key"`
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("auth.jwt_secret", "agisfl_secure_key_2024")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_pass", "password123")
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("store.threat_history", 100)
	v.SetDefault("store.packet_history", 1000)
	v.SetDefault("store.metric_history", 1000)
	v.SetDefault("store.alert_history", 100)
	v.SetDefault("store.packet_buffer_size", 4096)
	v.SetDefault("store.packet_flush_every", 250*time.Millisecond)
	v.SetDefault("store.packet_flush_batch", 64)

	v.SetDefault("monitors.system_interval", 5*time.Second)
	v.SetDefault("monitors.network_interval", 2*time.Second)
	v.SetDefault("monitors.fl_interval", 30*time.Second)

	v.SetDefault("pipeline.flag_threshold", 0.6)
	v.SetDefault("pipeline.mitigation_min_delay", 1*time.Second)
	v.SetDefault("pipeline.mitigation_max_delay", 6*time.Second)
	v.SetDefault("pipeline.cb_max_requests", 3)
	v.SetDefault("pipeline.cb_interval", 5*time.Second)
	v.SetDefault("pipeline.cb_timeout", 30*time.Second)

	v.SetDefault("broadcast.tick_interval", 5*time.Second)
	v.SetDefault("broadcast.send_buffer", 16)
	v.SetDefault("broadcast.inbound_rate", 5)
	v.SetDefault("broadcast.inbound_burst", 10)

	v.SetDefault("intel.channel", "agisfl:intel:signals")
	v.SetDefault("intel.set_key", "agisfl:intel:bad_ips")
}
