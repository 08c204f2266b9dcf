package config

import (
	"time"

	"github.com/mohae/deepcopy"
)

type FetchConfig struct {
	TimeoutSeconds float64 `yaml:"timeout_seconds" json:"timeout_seconds" validate:"gt=0"`
	MaxRetries     int     `yaml:"max_retries" json:"max_retries" validate:"min=1"`
	UserAgent      string  `yaml:"user_agent" json:"user_agent"`
}

// Config describes one simulation run. It is passed by value into the
// controller, which keeps its own copy for the lifetime of the run.
type Config struct {
	InitialUrls          []string  `yaml:"initial_urls" json:"initial_urls" validate:"dive,url"`
	BarberDelaySeconds   []float64 `yaml:"barber_delay_seconds" json:"barber_delay_seconds" validate:"len=2,dive,gte=0"`
	ProducerDelaySeconds []float64 `yaml:"producer_delay_seconds" json:"producer_delay_seconds" validate:"len=2,dive,gte=0"`
	Keywords             []string  `yaml:"keywords" json:"keywords"`

	MaxCustomers int `yaml:"max_customers" json:"max_customers" validate:"gte=0"`
	MaxQueueSize int `yaml:"max_queue_size" json:"max_queue_size" validate:"min=1"`

	EnableWakeupFromStoredUrls bool    `yaml:"enable_wakeup_from_stored_urls" json:"enable_wakeup_from_stored_urls"`
	NewCustomerProbability     float64 `yaml:"new_customer_probability" json:"new_customer_probability" validate:"gte=0,lte=1"`
	ProducerInterval           float64 `yaml:"producer_interval" json:"producer_interval" validate:"gte=0"`
	MaxStoredLinks             int     `yaml:"max_stored_links" json:"max_stored_links" validate:"min=1"`

	Fetch FetchConfig `yaml:"fetch" json:"fetch"`
}

func Default() Config {
	return Config{
		InitialUrls:                []string{},
		BarberDelaySeconds:         []float64{0.5, 1},
		ProducerDelaySeconds:       []float64{0.2, 0.5},
		Keywords:                   []string{},
		MaxCustomers:               10,
		MaxQueueSize:               5,
		EnableWakeupFromStoredUrls: true,
		NewCustomerProbability:     0.9,
		ProducerInterval:           1,
		MaxStoredLinks:             1000,
		Fetch: FetchConfig{
			TimeoutSeconds: 5,
			MaxRetries:     3,
			UserAgent:      "barbershop/1.0",
		},
	}
}

func (c Config) Clone() Config {
	return deepcopy.Copy(c).(Config)
}

func (c Config) BarberDelay() (time.Duration, time.Duration) {
	return secondsRange(c.BarberDelaySeconds)
}

func (c Config) ProducerDelay() (time.Duration, time.Duration) {
	return secondsRange(c.ProducerDelaySeconds)
}

func (c Config) ProducerIntervalDuration() time.Duration {
	return seconds(c.ProducerInterval)
}

func (f FetchConfig) Timeout() time.Duration {
	return seconds(f.TimeoutSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func secondsRange(r []float64) (time.Duration, time.Duration) {
	if len(r) != 2 {
		return 0, 0
	}
	return seconds(r[0]), seconds(r[1])
}
