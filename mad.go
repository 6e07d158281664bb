/*
 * Ledenik herd dashboard
 *
 * Copyright (C) 2016, Heiko Koehler
 *
 * HTTP service showing the sensors and switches of a herd of things. Readings are placed on a
 * picture of each thing, switches can be commanded and the history is drawn as a chart.
 */

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hkoehler/ledenik/internal/backend"
	"github.com/hkoehler/ledenik/internal/history"
)

var (
	ConfigPath string
	LogLevel   string
	Port       int
	SinceHours int
	SinceDays  int
	Output     string
)

// loadConfig reads the config file and applies the log level. An explicit
// flag wins over LOG_LEVEL which wins over the config file.
func loadConfig() (*Config, error) {
	conf, err := LoadConfigFile(ConfigPath)
	if err != nil {
		return nil, err
	}
	level := conf.LogLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if LogLevel != "" {
		level = LogLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(lvl)
	log.Infof("Config path: %s", ConfigPath)
	return conf, nil
}

func newBackend(conf *Config) (*backend.Client, error) {
	return backend.New(conf.Backend, nil)
}

func serve(cmd *cobra.Command, args []string) error {
	conf, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		conf.Port = Port
	}
	b, err := newBackend(conf)
	if err != nil {
		return err
	}
	if err := RegisterMetrics(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := NewDaemon(conf, b)
	names := make([]string, 0, len(conf.Things))
	for _, thing := range conf.Things {
		names = append(names, thing.Name)
	}
	d.Watcher.Start(ctx, names)
	updates, cancel := d.Watcher.Subscribe()
	defer cancel()
	go d.Hub.Run(ctx, updates)
	StartScheduler(ctx, d.Registry)
	StartExpiry(ctx, d.Watcher.Pending(), conf.pendingTTL)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", conf.Port), Handler: d}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	log.Infof("Listening on %s, backend %s", srv.Addr, conf.Backend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	d.Watcher.Wait()
	return nil
}

// fetchHistory loads the history of the named thing for the graph and
// export commands.
func fetchHistory(name string) (*Config, *backend.Client, *history.Table, error) {
	conf, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if _, err := conf.Thing(name); err != nil {
		return nil, nil, nil, err
	}
	b, err := newBackend(conf)
	if err != nil {
		return nil, nil, nil, err
	}
	q := history.Query{SinceHours: SinceHours, SinceDays: SinceDays}
	tbl, err := b.History(context.Background(), name, q)
	if err != nil {
		return nil, nil, nil, err
	}
	return conf, b, tbl, nil
}

func createOutput(def string) (*os.File, error) {
	if Output == "" {
		Output = def
	}
	if Output == "-" {
		return os.Stdout, nil
	}
	return os.Create(Output)
}

func graph(cmd *cobra.Command, args []string) error {
	conf, b, tbl, err := fetchHistory(args[0])
	if err != nil {
		return err
	}
	disp, err := b.Displayables(context.Background(), args[0])
	if err != nil {
		return err
	}
	f, err := createOutput(args[0] + ".svg")
	if err != nil {
		return err
	}
	defer f.Close()
	return PlotHistory(f, tbl, disp, GraphOptions{Location: conf.location})
}

func export(cmd *cobra.Command, args []string) error {
	conf, _, tbl, err := fetchHistory(args[0])
	if err != nil {
		return err
	}
	f, err := createOutput(args[0] + "-history.xlsx")
	if err != nil {
		return err
	}
	defer f.Close()
	return history.WriteXLSX(f, tbl, conf.location)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "ledenik",
		Short:         "Herd dashboard for sensors and switches",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&ConfigPath, "config", "/etc/ledenik.json", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&LogLevel, "log-level", "", "Log level (overrides LOG_LEVEL and config)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	serveCmd.Flags().IntVar(&Port, "port", 8080, "Server port")

	graphCmd := &cobra.Command{
		Use:   "graph <thing>",
		Short: "Render the history of a thing as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  graph,
	}
	exportCmd := &cobra.Command{
		Use:   "export <thing>",
		Short: "Export the history of a thing as a workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  export,
	}
	for _, c := range []*cobra.Command{graphCmd, exportCmd} {
		c.Flags().IntVar(&SinceHours, "since-hours", 0, "History range in hours")
		c.Flags().IntVar(&SinceDays, "since-days", 0, "History range in days")
		c.Flags().StringVarP(&Output, "output", "o", "", "Output file, - for stdout")
	}

	rootCmd.AddCommand(serveCmd, graphCmd, exportCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
