package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/offerbot/config"
	"github.com/alejandrodnm/offerbot/internal/adapters/storage"
	"github.com/alejandrodnm/offerbot/internal/domain"
)

func TestIsYes(t *testing.T) {
	for _, s := range []string{"y", "Y", " yes ", "YES"} {
		assert.True(t, isYes(s), s)
	}
	for _, s := range []string{"", "n", "no", "yep", "1"} {
		assert.False(t, isYes(s), s)
	}
}

func TestBuildReconcileConfig(t *testing.T) {
	p := 25.0
	cfg := &config.Config{AutoPrice: config.AutoPriceConfig{
		Percentile:      &p,
		PositionOffset:  2,
		GlobalMinPPM:    50,
		BalanceFraction: 0.4,
		MinSellerScore:  70,
		OwnAccount:      "02abc",
	}}

	rc := buildReconcileConfig(cfg, true, false)

	assert.Equal(t, 25.0, rc.Percentile)
	assert.Equal(t, 2, rc.PositionOffset)
	assert.Equal(t, int64(50), rc.GlobalMinPPM)
	assert.Equal(t, 0.4, rc.BalanceFraction)
	assert.Equal(t, "sell", rc.Filter.Side)
	assert.Equal(t, "channel", rc.Filter.Type)
	assert.Equal(t, 70.0, rc.Filter.MinSellerScore)
	assert.Equal(t, "02abc", rc.Filter.OwnAccount)
	assert.True(t, rc.DryRun)
	assert.False(t, rc.Force)
}

// writeConfig escribe una config mínima con el journal en un directorio temporal.
func writeConfig(t *testing.T, enabled bool) (cfgPath, dsn string) {
	t.Helper()
	dir := t.TempDir()
	dsn = filepath.Join(dir, "journal.db")
	cfgPath = filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("autoprice:\n  enabled: %t\nstorage:\n  dsn: %s\nlog:\n  level: error\n", enabled, dsn)
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath, dsn
}

func TestRun_ExitCodes(t *testing.T) {
	disabled, _ := writeConfig(t, false)
	enabled, _ := writeConfig(t, true)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown flag", []string{"-nope"}, exitFailure},
		{"missing config", []string{"-config", filepath.Join(t.TempDir(), "absent.yaml")}, exitFailure},
		{"autoprice disabled", []string{"-config", disabled}, exitOK},
		{"live schedule without force", []string{"-config", enabled, "-schedule", "@every 1h"}, exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}

func TestRun_JournalReleasedOnFailurePath(t *testing.T) {
	cfgPath, dsn := writeConfig(t, true)

	// Sale con error después de abrir el journal
	require.Equal(t, exitFailure, run([]string{"-config", cfgPath, "-schedule", "@every 1h"}))

	// El fichero quedó cerrado y consistente: se puede reabrir y escribir
	j, err := storage.NewSQLiteJournal(dsn)
	require.NoError(t, err)
	defer j.Close()
	require.NoError(t, j.SaveRun(context.Background(), &domain.RunReport{RunID: "after", StartedAt: time.Now()}))
}

func TestRun_History(t *testing.T) {
	cfgPath, dsn := writeConfig(t, true)

	j, err := storage.NewSQLiteJournal(dsn)
	require.NoError(t, err)
	require.NoError(t, j.SaveRun(context.Background(), &domain.RunReport{RunID: "r1", StartedAt: time.Now(), DryRun: true}))
	require.NoError(t, j.Close())

	assert.Equal(t, exitOK, run([]string{"-config", cfgPath, "-history", "5"}))
}
