package log

import (
	"os"
	"path/filepath"

	"github.com/saludtotal/rips-app/conf"
	"github.com/sirupsen/logrus"
)

var (
	API     logrus.FieldLogger
	Request logrus.FieldLogger

	Ledger  logrus.FieldLogger
	Billing logrus.FieldLogger
	Export  logrus.FieldLogger
)

func init() {
	API = Logger(logrus.New(), conf.GetEnv("RIPS_ERROR_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))
	Request = Logger(logrus.New(), conf.GetEnv("RIPS_REQUEST_LOG"),
		"api", conf.GetEnv("ENVIRONMENT"))

	Ledger = Logger(logrus.New(), conf.GetEnv("RIPS_LEDGER_LOG"),
		"pipeline", conf.GetEnv("ENVIRONMENT"))
	Billing = Logger(logrus.New(), conf.GetEnv("RIPS_BILLING_LOG"),
		"pipeline", conf.GetEnv("ENVIRONMENT"))
	Export = Logger(logrus.New(), conf.GetEnv("RIPS_EXPORT_LOG"),
		"pipeline", conf.GetEnv("ENVIRONMENT"))
}

func Logger(logger *logrus.Logger, outputFile string,
	application, environment string) logrus.FieldLogger {

	if outputFile != "" {
		if file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				outputFile, err.Error())
		}
	}

	return logger.WithFields(logrus.Fields{
		"application": application,
		"environment": environment})
}
