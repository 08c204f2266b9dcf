package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/oystub/barbershop/lib"
)

var validate = validator.New()

// Validate rejects any configuration the controller must never see:
// an empty waiting room, negative intervals, inverted delay ranges or
// seed URLs that are not http(s).
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	if c.BarberDelaySeconds[0] > c.BarberDelaySeconds[1] {
		return errors.Errorf("invalid configuration: barber_delay_seconds %v is not a [low, high] range", c.BarberDelaySeconds)
	}
	if c.ProducerDelaySeconds[0] > c.ProducerDelaySeconds[1] {
		return errors.Errorf("invalid configuration: producer_delay_seconds %v is not a [low, high] range", c.ProducerDelaySeconds)
	}
	for _, u := range c.InitialUrls {
		if _, err := lib.NormalizeURL(u); err != nil {
			return errors.Wrap(err, "invalid configuration: initial_urls")
		}
	}
	return nil
}
