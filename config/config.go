package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Firebase project.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID       string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseDatabaseURL     string `mapstructure:"FIREBASE_DATABASE_URL"`

	// Thumbnails.
	ThumbnailPrefix       string `mapstructure:"THUMBNAIL_PREFIX"`
	ThumbnailMaxDimension int    `mapstructure:"THUMBNAIL_MAX_DIMENSION"`
	ThumbnailResizer      string `mapstructure:"THUMBNAIL_RESIZER"`
	ImageMagickBinary     string `mapstructure:"IMAGEMAGICK_BINARY"`
	ScratchDir            string `mapstructure:"SCRATCH_DIR"`

	// Reservation notifications: "create" or "write".
	NotifyPolicy string `mapstructure:"NOTIFY_POLICY"`

	// Search index.
	SearchBackend        string `mapstructure:"SEARCH_BACKEND"`
	AlgoliaAppID         string `mapstructure:"ALGOLIA_APP_ID"`
	AlgoliaAPIKey        string `mapstructure:"ALGOLIA_API_KEY"`
	SearchEquipmentIndex string `mapstructure:"SEARCH_EQUIPMENT_INDEX"`
	SearchVendorsIndex   string `mapstructure:"SEARCH_VENDORS_INDEX"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	SearchDatabase       string `mapstructure:"SEARCH_DATABASE"`

	// Delivery de-duplication.
	DedupEnabled  bool          `mapstructure:"DEDUP_ENABLED"`
	DedupTTL      time.Duration `mapstructure:"DEDUP_TTL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDedupDB  int           `mapstructure:"REDIS_DEDUP_DB"`

	// Pub/Sub pull subscriptions, one per trigger. Empty disables the worker.
	PubSubProjectID      string `mapstructure:"PUBSUB_PROJECT_ID"`
	SubThumbnail         string `mapstructure:"PUBSUB_SUB_THUMBNAIL"`
	SubReservation       string `mapstructure:"PUBSUB_SUB_RESERVATION"`
	SubEquipmentWrite    string `mapstructure:"PUBSUB_SUB_EQUIPMENT_WRITE"`
	SubEquipmentDelete   string `mapstructure:"PUBSUB_SUB_EQUIPMENT_DELETE"`
	SubVendorWrite       string `mapstructure:"PUBSUB_SUB_VENDOR_WRITE"`
	SubVendorDelete      string `mapstructure:"PUBSUB_SUB_VENDOR_DELETE"`
	PubSubMaxOutstanding int    `mapstructure:"PUBSUB_MAX_OUTSTANDING"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 600)

	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	viper.SetDefault("FIREBASE_PROJECT_ID", "")
	viper.SetDefault("FIREBASE_DATABASE_URL", "")

	viper.SetDefault("THUMBNAIL_PREFIX", "thumbnail_")
	viper.SetDefault("THUMBNAIL_MAX_DIMENSION", 200)
	viper.SetDefault("THUMBNAIL_RESIZER", "native")
	viper.SetDefault("IMAGEMAGICK_BINARY", "convert")
	viper.SetDefault("SCRATCH_DIR", "")

	viper.SetDefault("NOTIFY_POLICY", "create")

	viper.SetDefault("SEARCH_BACKEND", "algolia")
	viper.SetDefault("ALGOLIA_APP_ID", "")
	viper.SetDefault("ALGOLIA_API_KEY", "")
	viper.SetDefault("SEARCH_EQUIPMENT_INDEX", "EQUIPMENT")
	viper.SetDefault("SEARCH_VENDORS_INDEX", "VENDORS")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("SEARCH_DATABASE", "gearshare_search")

	viper.SetDefault("DEDUP_ENABLED", false)
	viper.SetDefault("DEDUP_TTL", 24*time.Hour)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DEDUP_DB", 0)

	viper.SetDefault("PUBSUB_PROJECT_ID", "")
	viper.SetDefault("PUBSUB_SUB_THUMBNAIL", "")
	viper.SetDefault("PUBSUB_SUB_RESERVATION", "")
	viper.SetDefault("PUBSUB_SUB_EQUIPMENT_WRITE", "")
	viper.SetDefault("PUBSUB_SUB_EQUIPMENT_DELETE", "")
	viper.SetDefault("PUBSUB_SUB_VENDOR_WRITE", "")
	viper.SetDefault("PUBSUB_SUB_VENDOR_DELETE", "")
	viper.SetDefault("PUBSUB_MAX_OUTSTANDING", 10)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Subscriptions maps trigger names to their configured Pub/Sub pull
// subscriptions, leaving out triggers without one.
func (c Config) Subscriptions() map[string]string {
	all := map[string]string{
		"generateThumbnail":    c.SubThumbnail,
		"onEquipmentReserved":  c.SubReservation,
		"indexEquipment":       c.SubEquipmentWrite,
		"deleteEquipmentIndex": c.SubEquipmentDelete,
		"indexVendor":          c.SubVendorWrite,
		"deleteVendorIndex":    c.SubVendorDelete,
	}
	subs := make(map[string]string)
	for trigger, sub := range all {
		if sub != "" {
			subs[trigger] = sub
		}
	}
	return subs
}
