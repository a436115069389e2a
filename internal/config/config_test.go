package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	// Neutralize any ambient values so the fallbacks are what gets observed.
	for _, key := range []string{"DB_HOST", "DB_PORT", "AGING_INTERVAL_MINUTES",
		"STARVATION_THRESHOLD_MINUTES", "WEIGHT_EMERGENCY", "WEIGHT_WAITING", "WEIGHT_ARRIVAL"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.DBHost != "localhost" || cfg.DBPort != "5432" {
		t.Errorf("unexpected DB defaults: %s:%s", cfg.DBHost, cfg.DBPort)
	}
	if cfg.AgingIntervalMinutes != 5 {
		t.Errorf("aging interval = %v, want 5", cfg.AgingIntervalMinutes)
	}
	if cfg.StarvationThresholdMinutes != 30 {
		t.Errorf("starvation threshold = %v, want 30", cfg.StarvationThresholdMinutes)
	}
	if cfg.WeightEmergency != 5 || cfg.WeightWaiting != 3 || cfg.WeightArrival != 1.5 {
		t.Errorf("unexpected default weights: %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("STARVATION_THRESHOLD_MINUTES", "45")
	t.Setenv("WEIGHT_TRAVEL", "2.5")

	cfg := Load()
	if cfg.DBHost != "db.internal" {
		t.Errorf("DBHost = %q, want db.internal", cfg.DBHost)
	}
	if cfg.StarvationThresholdMinutes != 45 {
		t.Errorf("starvation threshold = %v, want 45", cfg.StarvationThresholdMinutes)
	}
	if cfg.WeightTravel != 2.5 {
		t.Errorf("travel weight = %v, want 2.5", cfg.WeightTravel)
	}
}

func TestLoad_InvalidFloatFallsBack(t *testing.T) {
	t.Setenv("AGING_INTERVAL_MINUTES", "soon")
	cfg := Load()
	if cfg.AgingIntervalMinutes != 5 {
		t.Errorf("aging interval = %v, want fallback 5", cfg.AgingIntervalMinutes)
	}
}

func TestDSN(t *testing.T) {
	c := &Config{DBHost: "h", DBPort: "p", DBUser: "u", DBPassword: "pw", DBName: "n", DBSSLMode: "disable"}
	want := "host=h port=p user=u password=pw dbname=n sslmode=disable"
	if got := c.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
