package main

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/m3rciful/shopbot/core/bootstrap"
	corecmd "github.com/m3rciful/shopbot/core/cmd"
	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/metrics"
	"github.com/m3rciful/shopbot/core/netutil"
	"github.com/m3rciful/shopbot/shop/bot"
	"github.com/m3rciful/shopbot/shop/commerce"
	"github.com/m3rciful/shopbot/shop/dialog"
	"github.com/m3rciful/shopbot/shop/notify"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and serve updates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        *configPath,
				ConfigEnvVar:      configEnvVar,
				DefaultConfigPath: defaultConfigPath,
				LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
					return coreconfig.Load(path)
				},
				Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
					app, err := buildApp(cfg.CoreConfig(), bootstrap.Options{Config: cfg.CoreConfig()})
					if err != nil {
						return nil, err
					}
					return app, nil
				},
			})
		},
	}
}

// shopApp is the bot plus the infrastructure it has to release on exit.
type shopApp struct {
	*bot.App
	infra *bootstrap.Result
}

func (a *shopApp) Close() error {
	return a.infra.Close()
}

func buildApp(cfg *coreconfig.Config, opts bootstrap.Options) (*shopApp, error) {
	infra, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}

	rec := metrics.New()
	shop := commerceClient(cfg.Strapi)

	var engineOpts []dialog.Option
	if cfg.Dialog.SerializePerUser {
		engineOpts = append(engineOpts, dialog.WithSerializedUsers())
	}
	engine, err := dialog.New(dialog.Deps{
		Commerce: shop,
		Sessions: infra.Sessions,
		Notifier: notify.New(cfg.Mail),
		Metrics:  rec,
	}, engineOpts...)
	if err != nil {
		return nil, closeOnError(infra, err)
	}

	app, err := bot.New(cfg, engine, rec)
	if err != nil {
		return nil, closeOnError(infra, err)
	}
	return &shopApp{App: app, infra: infra}, nil
}

func commerceClient(cfg coreconfig.StrapiConfig) commerce.Client {
	if cfg.Demo {
		return commerce.NewDemoClient()
	}
	return commerce.NewStrapiClient(cfg.URL, cfg.Token, netutil.BuildHTTPClient(netutil.ClientOptions{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}))
}

func closeOnError(infra *bootstrap.Result, err error) error {
	if cerr := infra.Close(); cerr != nil {
		return multierror.Append(err, cerr)
	}
	return err
}
