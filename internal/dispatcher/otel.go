package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/abporter521/CS3500-TankWars/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
