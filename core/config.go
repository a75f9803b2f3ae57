package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all client settings. A single instance is loaded at init
// from defaults, an optional dotenv file and the environment.
type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	AppName  string
	Build    string

	// backend endpoints
	APIBaseURL string
	WSURL      string

	RequestTimeout time.Duration
	// FetchTimeout bounds the initial batched data fetch.
	FetchTimeout time.Duration
	// ReconnectDelay is the fixed wait between push-channel reconnect attempts.
	ReconnectDelay time.Duration

	// CredentialsFile overrides the default credential cache location.
	CredentialsFile string

	RollbarToken string
}

var Conf *Config

func init() {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "StacklyHub")
	v.SetDefault("build", "dev")
	v.SetDefault("apiBaseURL", "http://localhost:8002")
	v.SetDefault("wsURL", "ws://localhost:8002/ws")
	v.SetDefault("requestTimeout", 30*time.Second)
	v.SetDefault("fetchTimeout", 10*time.Second)
	v.SetDefault("reconnectDelay", 5*time.Second)
	v.SetDefault("credentialsFile", "")
	v.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        env == "TEST",
		Env:             env,
		AppName:         v.GetString("appName"),
		Build:           v.GetString("build"),
		APIBaseURL:      v.GetString("apiBaseURL"),
		WSURL:           v.GetString("wsURL"),
		RequestTimeout:  v.GetDuration("requestTimeout"),
		FetchTimeout:    v.GetDuration("fetchTimeout"),
		ReconnectDelay:  v.GetDuration("reconnectDelay"),
		CredentialsFile: v.GetString("credentialsFile"),
		RollbarToken:    v.GetString("rollbarToken"),
	}
}
