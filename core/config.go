package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	// FaceConfig holds the face matching knobs.
	// MatchThreshold is the live-session acceptance distance; StrictMatchThreshold
	// is the tighter distance used when verifying enrollment samples.
	FaceConfig struct {
		EncodingsPath        string
		MatchThreshold       float64
		StrictMatchThreshold float64
	}

	SessionConfig struct {
		MaxDuration   time.Duration
		FrameInterval time.Duration
	}

	CameraConfig struct {
		SnapshotURL string
		Timeout     time.Duration
	}

	VisionConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Face     FaceConfig
		Session  SessionConfig
		Camera   CameraConfig
		Vision   VisionConfig
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// NewConfig loads the app configuration: viper defaults, then `config/.env.<env>`
// if present, then `<ENV>_`-prefixed environment variables.
func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Mahudhurio")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "w#b9e$+2mc)_(ql7ya^4hz&u@xh5(r!x)#*g2(#yj8h^$cehm3")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.addr", ":8000")
	conf.SetDefault("server.debugHost", "localhost:9000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "mahudhurio")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.user", "")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("face.encodingsPath", "encodings.gob")
	conf.SetDefault("face.matchThreshold", 0.6)
	conf.SetDefault("face.strictMatchThreshold", 0.4)

	conf.SetDefault("session.maxDuration", 10*time.Minute)
	conf.SetDefault("session.frameInterval", 200*time.Millisecond)

	conf.SetDefault("camera.snapshotURL", "http://localhost:8080/shot.jpg")
	conf.SetDefault("camera.timeout", 5*time.Second)

	conf.SetDefault("vision.baseURL", "http://localhost:18081")
	conf.SetDefault("vision.timeout", 30*time.Second)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch strings.ToUpper(env) {
	case "":
		env = "DEV"
	case "TEST":
		env = "TEST"
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		WorkDir:          wd,
		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Addr:                      conf.GetString("server.addr"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Face: FaceConfig{
			EncodingsPath:        conf.GetString("face.encodingsPath"),
			MatchThreshold:       conf.GetFloat64("face.matchThreshold"),
			StrictMatchThreshold: conf.GetFloat64("face.strictMatchThreshold"),
		},
		Session: SessionConfig{
			MaxDuration:   conf.GetDuration("session.maxDuration"),
			FrameInterval: conf.GetDuration("session.frameInterval"),
		},
		Camera: CameraConfig{
			SnapshotURL: conf.GetString("camera.snapshotURL"),
			Timeout:     conf.GetDuration("camera.timeout"),
		},
		Vision: VisionConfig{
			BaseURL: conf.GetString("vision.baseURL"),
			Timeout: conf.GetDuration("vision.timeout"),
		},
	}
}
