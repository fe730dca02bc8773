package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "REDIS_DB", "LOCK_TTL", "SEED_DEV_PROFILES", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Mode != ModeOffline || c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" {
		t.Fatalf("defaults = %+v", c)
	}
	if !c.SeedDevProfiles || c.LockTTL != 10*time.Second || c.RedisDB != 0 {
		t.Fatalf("offline defaults = %+v", c)
	}
	if len(c.CORSOrigins) != 2 {
		t.Fatalf("origins = %v", c.CORSOrigins)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("LOCK_TTL", "2s")
	t.Setenv("SEED_DEV_PROFILES", "")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	c := FromEnv()
	if c.Mode != ModeOnline || c.DBDriver != "memory" || c.RedisDB != 3 || c.LockTTL != 2*time.Second {
		t.Fatalf("overrides = %+v", c)
	}
	if c.SeedDevProfiles {
		t.Fatal("online mode seeds dev profiles by default")
	}
	if len(c.CORSOrigins) != 2 || c.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("origins = %v", c.CORSOrigins)
	}
}

func TestEnvHelpers_BadValuesFallBack(t *testing.T) {
	t.Setenv("X_INT", "many")
	t.Setenv("X_DUR", "-1s")
	t.Setenv("X_BOOL", "maybe")
	if envInt("X_INT", 7) != 7 || envDuration("X_DUR", time.Minute) != time.Minute || !envBool("X_BOOL", true) {
		t.Fatal("bad values did not fall back to defaults")
	}
}
