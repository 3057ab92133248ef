package lnd

// wallet.go: Capital source backed by the node's CLI tools.
//
// Spendable balance = sum of confirmed UTXOs from `lncli listunspent`, minus the
// outpoints that Lightning Terminal reserves for static loop addresses
// (`loop static listunspent`). Spending a reserved UTXO makes the channel open fail,
// so a configured loop binary that cannot be queried is a hard error.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// ErrReserveUnavailable se devuelve cuando loop está configurado pero no responde.
var ErrReserveUnavailable = errors.New("static loop reserve unavailable")

// CommandRunner ejecuta un binario y devuelve su stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner ejecuta comandos reales con os/exec.
type ExecRunner struct{}

// Run ejecuta el comando y devuelve stdout; stderr se incluye en el error.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Config configura las rutas y flags de los binarios.
type Config struct {
	LncliPath       string
	MinConfs        int
	LoopPath        string // vacío = sin reserva de static loop
	LoopRPCServer   string
	LoopTLSCertPath string
	Timeout         time.Duration
}

// Wallet implementa ports.CapitalSource sobre lncli/loop.
type Wallet struct {
	cfg    Config
	runner CommandRunner
}

// NewWallet crea un Wallet. Si runner es nil usa ExecRunner.
func NewWallet(cfg Config, runner CommandRunner) *Wallet {
	if cfg.LncliPath == "" {
		cfg.LncliPath = "lncli"
	}
	if cfg.MinConfs <= 0 {
		cfg.MinConfs = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Wallet{cfg: cfg, runner: runner}
}

type utxo struct {
	Outpoint  string      `json:"outpoint"`
	AmountSat json.Number `json:"amount_sat"`
}

type listUnspentResponse struct {
	Utxos []utxo `json:"utxos"`
}

// SpendableBalance devuelve la suma de UTXOs confirmados no reservados, en sats.
func (w *Wallet) SpendableBalance(ctx context.Context) (int64, error) {
	utxos, err := w.listUnspent(ctx)
	if err != nil {
		return 0, fmt.Errorf("lnd.SpendableBalance: %w", err)
	}

	reserved, err := w.reservedOutpoints(ctx)
	if err != nil {
		return 0, fmt.Errorf("lnd.SpendableBalance: %w", err)
	}

	var total int64
	excluded := 0
	for _, u := range utxos {
		if reserved[u.Outpoint] {
			excluded++
			continue
		}
		amt, err := u.AmountSat.Int64()
		if err != nil {
			return 0, fmt.Errorf("lnd.SpendableBalance: utxo %s: amount %q: %w", u.Outpoint, u.AmountSat, err)
		}
		total += amt
	}

	slog.Info("wallet balance",
		"utxos", len(utxos),
		"reserved_excluded", excluded,
		"spendable_sats", total,
	)
	return total, nil
}

func (w *Wallet) listUnspent(ctx context.Context) ([]utxo, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	out, err := w.runner.Run(ctx, w.cfg.LncliPath, "listunspent", fmt.Sprintf("--min_confs=%d", w.cfg.MinConfs))
	if err != nil {
		return nil, fmt.Errorf("listunspent: %w", err)
	}
	resp, err := decodeUnspent(out)
	if err != nil {
		return nil, fmt.Errorf("listunspent: %w", err)
	}
	return resp.Utxos, nil
}

// reservedOutpoints devuelve los outpoints de static loop. Sin loop configurado devuelve un set vacío.
func (w *Wallet) reservedOutpoints(ctx context.Context) (map[string]bool, error) {
	reserved := map[string]bool{}
	if w.cfg.LoopPath == "" {
		return reserved, nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	var args []string
	if w.cfg.LoopRPCServer != "" {
		args = append(args, "--rpcserver="+w.cfg.LoopRPCServer)
	}
	if w.cfg.LoopTLSCertPath != "" {
		args = append(args, "--tlscertpath="+w.cfg.LoopTLSCertPath)
	}
	args = append(args, "static", "listunspent")

	out, err := w.runner.Run(ctx, w.cfg.LoopPath, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReserveUnavailable, err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrReserveUnavailable)
	}
	resp, err := decodeUnspent(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReserveUnavailable, err)
	}
	for _, u := range resp.Utxos {
		reserved[u.Outpoint] = true
	}
	slog.Debug("static loop reserve", "utxos", len(resp.Utxos))
	return reserved, nil
}

func decodeUnspent(out []byte) (listUnspentResponse, error) {
	var resp listUnspentResponse
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return resp, fmt.Errorf("decode json: %w", err)
	}
	return resp, nil
}
