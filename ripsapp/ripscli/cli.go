package ripscli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/saludtotal/rips-app/conf"
	"github.com/saludtotal/rips-app/ripsapp/adapter"
	"github.com/saludtotal/rips-app/ripsapp/aggregator"
	"github.com/saludtotal/rips-app/ripsapp/billing"
	"github.com/saludtotal/rips-app/ripsapp/constants"
	"github.com/saludtotal/rips-app/ripsapp/database"
	"github.com/saludtotal/rips-app/ripsapp/export"
	"github.com/saludtotal/rips-app/ripsapp/ledger"
	"github.com/saludtotal/rips-app/ripsapp/postgres"
	"github.com/saludtotal/rips-app/ripsapp/web"
)

// App Name and usage.  Edit them here to prevent breaking tests
const Name = "rips-app"
const Usage = "Attention episode billing and RIPS export CLI"

func GetApp() *cli.App {
	return setUpApp()
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	app.Version = constants.Version

	var fileID, companyID, payerID, periodStart, periodEnd, providerNIT, invoiceIDs, sentTo string

	app.Commands = []cli.Command{
		{
			Name:  "start-api",
			Usage: "Start the API",
			Action: func(c *cli.Context) error {
				db := database.GetDbConnection()
				defer db.Close()

				repository := postgres.NewRepository(db)
				registry := adapter.NewRegistry(adapter.NewSQLSource(db))
				agg := aggregator.New(registry, repository)
				billingSvc := billing.NewService(repository, agg)
				ldgr := ledger.New(repository, registry, agg, billingSvc)
				exporter := export.New(repository)

				api := web.NewAPI(repository, ldgr, billingSvc, exporter, func() bool {
					return db.Ping() == nil
				})

				addr := conf.GetEnv("RIPS_API_ADDR")
				if addr == "" {
					addr = ":3000"
				}

				fmt.Fprintf(app.Writer, "Starting %s on %s\n", Name, addr)
				srv := &http.Server{
					Handler:      web.NewAPIRouter(api),
					Addr:         addr,
					ReadTimeout:  10 * time.Second,
					WriteTimeout: 20 * time.Second,
					IdleTimeout:  120 * time.Second,
				}
				return srv.ListenAndServe()
			},
		},
		{
			Name:     "build-rips-file",
			Category: "RIPS export",
			Usage:    "Batch issued invoices into a draft RIPS file",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "company-id", Usage: "Company UUID", Destination: &companyID},
				cli.StringFlag{Name: "payer-id", Usage: "Payer UUID", Destination: &payerID},
				cli.StringFlag{Name: "period-start", Usage: "Period start (YYYY-MM-DD)", Destination: &periodStart},
				cli.StringFlag{Name: "period-end", Usage: "Period end (YYYY-MM-DD)", Destination: &periodEnd},
				cli.StringFlag{Name: "provider-nit", Usage: "Reporting provider NIT", Destination: &providerNIT},
				cli.StringFlag{Name: "invoice-ids", Usage: "Comma separated invoice UUIDs", Destination: &invoiceIDs},
			},
			Action: func(c *cli.Context) error {
				file, err := buildRIPSFile(companyID, payerID, periodStart, periodEnd, providerNIT, invoiceIDs)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Writer, "%s\n", file)
				return nil
			},
		},
		{
			Name:     "generate-rips",
			Category: "RIPS export",
			Usage:    "Render the JSON and legacy artifacts for a draft RIPS file",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "file-id", Usage: "RIPS file UUID", Destination: &fileID},
			},
			Action: func(c *cli.Context) error {
				paths, err := generateRIPSFile(fileID)
				if err != nil {
					return err
				}
				fmt.Fprintf(app.Writer, "%s\n", paths)
				return nil
			},
		},
		{
			Name:     "send-rips",
			Category: "RIPS export",
			Usage:    "Freeze a generated RIPS file and record its destination",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "file-id", Usage: "RIPS file UUID", Destination: &fileID},
				cli.StringFlag{Name: "sent-to", Usage: "Destination system", Destination: &sentTo},
			},
			Action: func(c *cli.Context) error {
				if err := sendRIPSFile(fileID, sentTo); err != nil {
					return err
				}
				fmt.Fprintf(app.Writer, "RIPS file %s marked sent\n", fileID)
				return nil
			},
		},
	}
	return app
}

func buildRIPSFile(companyID, payerID, periodStart, periodEnd, providerNIT, invoiceIDs string) (string, error) {
	company := uuid.Parse(companyID)
	payer := uuid.Parse(payerID)
	if company == nil || payer == nil {
		return "", errors.New("company-id and payer-id must be valid UUIDs")
	}

	start, err := time.Parse("2006-01-02", periodStart)
	if err != nil {
		return "", errors.Wrap(err, "invalid period-start")
	}
	end, err := time.Parse("2006-01-02", periodEnd)
	if err != nil {
		return "", errors.Wrap(err, "invalid period-end")
	}

	var members []export.Member
	for _, raw := range strings.Split(invoiceIDs, ",") {
		id := uuid.Parse(strings.TrimSpace(raw))
		if id == nil {
			return "", fmt.Errorf("invalid invoice id %q", raw)
		}
		members = append(members, export.Member{InvoiceID: id})
	}

	db := database.GetDbConnection()
	defer db.Close()
	exporter := export.New(postgres.NewRepository(db))

	file, err := exporter.BuildFile(context.Background(), export.BuildFileArgs{
		CompanyID:   company,
		PayerID:     payer,
		PeriodStart: start,
		PeriodEnd:   end,
		ProviderNIT: providerNIT,
		Members:     members,
	})
	if err != nil {
		return "", err
	}
	return file.FileNumber, nil
}

func generateRIPSFile(fileID string) (string, error) {
	id := uuid.Parse(fileID)
	if id == nil {
		return "", errors.New("file-id must be a valid UUID")
	}

	db := database.GetDbConnection()
	defer db.Close()
	exporter := export.New(postgres.NewRepository(db))

	file, err := exporter.Generate(context.Background(), id)
	if err != nil {
		log.Error(err)
		return "", err
	}
	return fmt.Sprintf("%s %s", file.JSONFilePath, file.TxtFilePath), nil
}

func sendRIPSFile(fileID, sentTo string) error {
	id := uuid.Parse(fileID)
	if id == nil {
		return errors.New("file-id must be a valid UUID")
	}

	db := database.GetDbConnection()
	defer db.Close()
	exporter := export.New(postgres.NewRepository(db))

	_, err := exporter.MarkSent(context.Background(), id, sentTo)
	return err
}
