package main

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/pg"
)

// addHarvestFlags registers the flags that configure a harvest run.
func addHarvestFlags(cmd *cobra.Command) {
	def := harvest.DefaultOptions()

	f := cmd.Flags()
	f.Int("concurrency", def.Concurrency, "number of sources and detail fetches processed at once")
	f.Bool("derestrict", def.Derestrict, "fetch the next listing page without waiting for the previous page's events")
	f.Int("retries", def.HTTPReqRetries, "attempts per HTTP request")
	f.Duration("retry-delay", def.HTTPReqRetryDelay, "pause between HTTP attempts")
	f.Duration("timeout", def.HTTPReqTimeout, "timeout of each HTTP attempt")
	f.Float64("rate", def.HTTPReqRate, "maximum HTTP requests per second, 0 for no limit")
	f.Bool("aws", def.IsAWS, "constrained host: run one browser at a time")
	f.Int("browser-concurrency", def.BrowserConcurrency, "browsers run at once when --aws=false")
	f.String("chrome", "", "path of the Chrome binary used for captures")
	f.String("base-url", def.BaseURL, "origin of listing and event pages")
	f.String("user-agent", def.UserAgent, "User-Agent sent with HTTP requests")
	f.String("db", "", "PostgreSQL connection URL to store harvested events in")
}

// harvestOptions reads the flags registered by addHarvestFlags.
func harvestOptions() harvest.Options {
	return harvest.Options{
		Concurrency:        viper.GetInt("concurrency"),
		Derestrict:         viper.GetBool("derestrict"),
		HTTPReqRetries:     viper.GetInt("retries"),
		HTTPReqRetryDelay:  viper.GetDuration("retry-delay"),
		HTTPReqTimeout:     viper.GetDuration("timeout"),
		HTTPReqRate:        viper.GetFloat64("rate"),
		IsAWS:              viper.GetBool("aws"),
		BrowserConcurrency: viper.GetInt("browser-concurrency"),
		ChromePath:         viper.GetString("chrome"),
		OutputFile:         viper.GetString("output"),
		BaseURL:            viper.GetString("base-url"),
		UserAgent:          viper.GetString("user-agent"),
	}
}

// openEventStore connects to the database at dbURL and sets up its schema.
func openEventStore(cmd *cobra.Command, dbURL string) (*pg.EventStore, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(5)

	eventStore := &pg.EventStore{DB: db}
	if err := eventStore.Init(cmd.Context()); err != nil {
		db.Close()
		return nil, err
	}
	return eventStore, nil
}
