package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/offerbot/internal/domain"
)

// Config es la configuración completa del reconciliador de ofertas.
type Config struct {
	AutoPrice AutoPriceConfig      `yaml:"autoprice"`
	Offers    map[string]yaml.Node `yaml:"offers"` // se decodifica por template, un error solo afecta a ese template
	API       APIConfig            `yaml:"api"`
	Wallet    WalletConfig         `yaml:"wallet"`
	Telegram  TelegramConfig       `yaml:"telegram"`
	Storage   StorageConfig        `yaml:"storage"`
	Metrics   MetricsConfig        `yaml:"metrics"`
	Log       LogConfig            `yaml:"log"`

	Secrets Secrets `yaml:"-"`
}

// AutoPriceConfig controla el pricing y la asignación de capital.
type AutoPriceConfig struct {
	Enabled         bool     `yaml:"enabled"`   // interruptor global: false = no hacer nada
	Templates       []string `yaml:"templates"` // orden de procesamiento
	Percentile      *float64 `yaml:"pricing_percentile"` // nil = 10; 0 es válido (la oferta más barata)
	PositionOffset  int      `yaml:"position_offset"`
	GlobalMinPPM    int64    `yaml:"global_min_ppm"`
	BalanceFraction float64  `yaml:"balance_fraction_for_sale"`
	MinSellerScore  float64  `yaml:"min_seller_score"`
	OwnAccount      string   `yaml:"own_account"` // pubkey del nodo propio, excluido del pool
}

// OfferConfig es una sección offers.<name> tal cual aparece en el YAML.
type OfferConfig struct {
	ChannelSizeSats int64   `yaml:"channel_size_sats"`
	DurationDays    int     `yaml:"duration_days"`
	MinFixedFee     int64   `yaml:"min_fixed_fee_sats"`
	MaxFixedFee     int64   `yaml:"max_fixed_fee_sats"`
	MinFeeRatePPM   int64   `yaml:"min_ppm_fee"`
	MaxFeeRatePPM   int64   `yaml:"max_ppm_fee"`
	TargetAPRMin    float64 `yaml:"target_apr_min"`
	TargetAPRMax    float64 `yaml:"target_apr_max"`
	CapitalShare    float64 `yaml:"capital_allocation_share"`
	Enabled         *bool   `yaml:"enabled"` // nil = habilitado
}

// APIConfig contiene el endpoint GraphQL del marketplace.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// WalletConfig controla cómo se lee el saldo on-chain del nodo.
type WalletConfig struct {
	LncliPath       string `yaml:"lncli_path"`
	MinConfs        int    `yaml:"min_confs"`
	LoopPath        string `yaml:"loop_path"` // vacío = no excluir UTXOs reservados por loop
	LoopRPCServer   string `yaml:"loop_rpcserver"`
	LoopTLSCertPath string `yaml:"loop_tlscertpath"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
}

// TelegramConfig controla cuándo se envía el resumen al chat.
type TelegramConfig struct {
	NotifyOnChangeOnly bool   `yaml:"notify_on_change_only"`
	NotifyDryRun       bool   `yaml:"notify_dry_run"`
	APIServer          string `yaml:"api_server"`
}

// StorageConfig controla dónde se persiste el journal de runs.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// MetricsConfig controla el volcado de métricas Prometheus.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // vacío = sin métricas
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"LOG_FORMAT"` // text | json
}

// Secrets se leen solo del entorno (o del .env), nunca del YAML.
type Secrets struct {
	AmbossToken      string `env:"AMBOSS_TOKEN"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return &cfg, nil
}

// APITimeout devuelve el timeout por llamada al marketplace.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// WalletTimeout devuelve el timeout por comando del wallet.
func (c *Config) WalletTimeout() time.Duration {
	return time.Duration(c.Wallet.TimeoutSeconds) * time.Second
}

// Templates resuelve autoprice.templates contra las secciones offers.<name>, en orden.
// Una sección ausente, mal formada o inválida produce una entrada con Err.
func (c *Config) Templates() []domain.TemplateEntry {
	entries := make([]domain.TemplateEntry, 0, len(c.AutoPrice.Templates))
	for _, name := range c.AutoPrice.Templates {
		t, err := c.resolveOffer(name)
		entries = append(entries, domain.TemplateEntry{Name: name, Template: t, Err: err})
	}
	return entries
}

func (c *Config) resolveOffer(name string) (domain.Template, error) {
	node, ok := c.Offers[name]
	if !ok {
		return domain.Template{}, fmt.Errorf("config: section offers.%s not found", name)
	}

	oc := OfferConfig{MaxFixedFee: 1_000_000, MaxFeeRatePPM: 10_000, TargetAPRMax: 100}
	if err := node.Decode(&oc); err != nil {
		return domain.Template{}, fmt.Errorf("config: decode offers.%s: %w", name, err)
	}

	enabled := true
	if oc.Enabled != nil {
		enabled = *oc.Enabled
	}
	return domain.NewTemplate(domain.Template{
		Name:            name,
		ChannelSizeSats: oc.ChannelSizeSats,
		DurationDays:    oc.DurationDays,
		MinFixedFee:     oc.MinFixedFee,
		MaxFixedFee:     oc.MaxFixedFee,
		MinFeeRatePPM:   oc.MinFeeRatePPM,
		MaxFeeRatePPM:   oc.MaxFeeRatePPM,
		TargetAPRMin:    oc.TargetAPRMin,
		TargetAPRMax:    oc.TargetAPRMax,
		CapitalShare:    oc.CapitalShare,
		Enabled:         enabled,
	})
}

// applyEnvOverrides lee los secretos y sobreescribe el logging con variables de entorno.
// Las variables ausentes no tocan el valor del YAML.
func applyEnvOverrides(cfg *Config) error {
	if err := env.Parse(&cfg.Secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}
	if err := env.Parse(&cfg.Log); err != nil {
		return fmt.Errorf("parse log env: %w", err)
	}
	return nil
}

// validate rechaza valores globales fuera de rango. Los errores de cada oferta
// se reportan por template, no aquí.
func validate(cfg *Config) error {
	if p := *cfg.AutoPrice.Percentile; p < 0 || p > 100 {
		return fmt.Errorf("autoprice.pricing_percentile %.2f outside [0,100]", p)
	}
	if f := cfg.AutoPrice.BalanceFraction; f < 0 || f > 1 {
		return fmt.Errorf("autoprice.balance_fraction_for_sale %.4f outside [0,1]", f)
	}
	if cfg.AutoPrice.GlobalMinPPM < 0 {
		return fmt.Errorf("autoprice.global_min_ppm must be >= 0")
	}
	return nil
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.AutoPrice.Percentile == nil {
		p := 10.0
		cfg.AutoPrice.Percentile = &p
	}
	if cfg.AutoPrice.PositionOffset <= 0 {
		cfg.AutoPrice.PositionOffset = 1
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.amboss.space/graphql"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 30
	}
	if cfg.Wallet.LncliPath == "" {
		cfg.Wallet.LncliPath = "lncli"
	}
	if cfg.Wallet.MinConfs <= 0 {
		cfg.Wallet.MinConfs = 3
	}
	if cfg.Wallet.TimeoutSeconds <= 0 {
		cfg.Wallet.TimeoutSeconds = 30
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "offerbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
