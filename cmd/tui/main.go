package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rangebot-go/internal/config"
	"rangebot-go/internal/strategy"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config (%v), starting from defaults\n", err)
		cfg = config.Default()
	}

	for {
		fmt.Println("\n=== RangeBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit strategy knobs")
		fmt.Println("3) Edit feed settings")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch live runner")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editStrategy(reader, cfg)
		case "3":
			editFeed(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchLive(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	sp := cfg.Strategy.Params
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Feed: %s %s @ %s\n", cfg.Feed.Provider, cfg.Feed.Symbol, cfg.Feed.Interval)
	fmt.Printf("Strategy: %s\n", cfg.Strategy.Mode)
	fmt.Printf("Session opens %s %s, range mode %s\n", sp.SessionOpen, sp.Timezone, sp.RangeMode)
	fmt.Printf("Opening window: %d min | ATR period %d x %.2f\n", sp.LookbackMinutes, sp.ATRPeriod, sp.ATRMultiplier)
	fmt.Printf("Cooldown: %.2f h\n", sp.CooldownHours)
	if sp.BuyBelow > 0 {
		fmt.Printf("Threshold levels: buy < %.2f | sell > %.2f\n", sp.BuyBelow, sp.SellAbove)
	}
	params, err := cfg.StrategyParams()
	if err != nil {
		fmt.Printf("Invalid: %v\n", err)
		return
	}
	fmt.Printf("Derived: %d bars in window, %d cooldown bars\n", params.BarsInWindow(), params.CooldownBars())
}

func editStrategy(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Strategy ---")
	sp := &cfg.Strategy.Params
	cfg.Strategy.Mode = promptString(reader, "Mode (opening_range, threshold)", cfg.Strategy.Mode)
	sp.LookbackMinutes = int(promptFloat(reader, "Opening window (minutes)", float64(sp.LookbackMinutes)))
	sp.ATRPeriod = int(promptFloat(reader, "ATR period (bars)", float64(sp.ATRPeriod)))
	sp.ATRMultiplier = promptFloat(reader, "ATR multiplier", sp.ATRMultiplier)
	sp.CooldownHours = promptFloat(reader, "Cooldown (hours)", sp.CooldownHours)
	sp.SessionOpen = promptString(reader, "Session open (HH:MM)", sp.SessionOpen)
	sp.Timezone = promptString(reader, "Timezone", sp.Timezone)
	sp.RangeMode = promptString(reader, "Range mode (full_window, incremental)", sp.RangeMode)
	if strings.HasPrefix(strings.ToLower(cfg.Strategy.Mode), "threshold") {
		sp.BuyBelow = promptFloat(reader, "Buy below", sp.BuyBelow)
		sp.SellAbove = promptFloat(reader, "Sell above", sp.SellAbove)
	}
	if err := validate(cfg); err != nil {
		fmt.Printf("warning: %v\n", err)
	}
}

func editFeed(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Feed ---")
	cfg.Feed.Provider = promptString(reader, "Provider (stub, binance, binance_rest)", cfg.Feed.Provider)
	cfg.Feed.Symbol = strings.ToUpper(promptString(reader, "Symbol", cfg.Feed.Symbol))
	cfg.Feed.Interval = promptString(reader, "Bar interval (1m, 15m, 1h, ...)", cfg.Feed.Interval)
	cfg.Feed.PollInterval = int(promptFloat(reader, "Poll interval (ms)", float64(cfg.Feed.PollInterval)))
}

func validate(cfg *config.Config) error {
	params, err := cfg.StrategyParams()
	if err != nil {
		return err
	}
	_, err = strategy.Build(cfg.Strategy.Mode, params)
	return err
}

func launchLive(reader *bufio.Reader) {
	fmt.Println("Launching live runner (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/live", "--config", locateConfig())
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start runner: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the runner and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return current
	}
	return line
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	if err := validate(cfg); err != nil {
		return err
	}
	path := locateConfig()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return config.Save(path, cfg)
}

func locateConfig() string {
	if p := os.Getenv("RANGEBOT_CONFIG"); p != "" {
		return filepath.Clean(p)
	}
	return filepath.Clean(defaultConfigPath)
}
