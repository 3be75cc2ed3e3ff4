package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/proppilot/proppilot/internal/config"
	"github.com/proppilot/proppilot/internal/model"
	"github.com/proppilot/proppilot/internal/repository"
	"github.com/proppilot/proppilot/internal/service"
)

// seed upserts the configured properties and makes sure the scheduled
// templates have an editable database row. Existing rows are never
// overwritten, so operator edits survive restarts.
func seed(
	ctx context.Context,
	log *logrus.Logger,
	settings *config.Settings,
	properties repository.PropertyRepository,
	messages repository.MessageRepository,
) error {
	for _, p := range settings.Properties {
		if p.Name == "" {
			return fmt.Errorf("property seed without a name")
		}
		_, err := properties.FindByName(ctx, p.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		prop := &model.Property{
			Name:         p.Name,
			Address:      p.Address,
			ICalURL:      p.ICalURL,
			Bedrooms:     p.Bedrooms,
			MaxGuests:    p.MaxGuests,
			BasePrice:    p.BasePrice,
			CleaningFee:  p.CleaningFee,
			WifiPassword: p.WifiPassword,
			LockboxCode:  p.LockboxCode,
			CheckinTime:  p.CheckinTime,
			CheckoutTime: p.CheckoutTime,
			CleanerName:  p.CleanerName,
			CleanerPhone: p.CleanerPhone,
			CleanerEmail: p.CleanerEmail,
			Notes:        p.Notes,
		}
		if prop.Bedrooms == 0 {
			prop.Bedrooms = 1
		}
		if prop.MaxGuests == 0 {
			prop.MaxGuests = 4
		}
		if prop.BasePrice == 0 {
			prop.BasePrice = 100
		}
		if prop.CheckinTime == "" {
			prop.CheckinTime = "15:00"
		}
		if prop.CheckoutTime == "" {
			prop.CheckoutTime = "11:00"
		}
		if err := properties.Create(ctx, prop); err != nil {
			return fmt.Errorf("seed property %s: %w", p.Name, err)
		}
		log.WithField("property", p.Name).Info("property seeded")
	}

	// Template rows start inactive: the embedded built-in renders until an
	// operator edits the row and flips is_active.
	for _, name := range []string{
		service.TemplateWelcome,
		service.TemplateCheckInInstructions,
		service.TemplateCheckoutReminder,
		service.TemplateReviewRequest,
	} {
		body, ok := service.BuiltinTemplateBody(name)
		if !ok {
			return fmt.Errorf("missing built-in template %s", name)
		}
		tpl := &model.MessageTemplate{
			Name:     name,
			Channel:  model.MessageChannelAirbnb,
			Body:     body,
			IsActive: false,
		}
		if err := messages.EnsureTemplate(ctx, tpl); err != nil {
			return fmt.Errorf("seed template %s: %w", name, err)
		}
	}
	return nil
}
