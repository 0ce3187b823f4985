// Package collector gathers and confirms the host configuration, reusing a
// saved one when the operator agrees.
package collector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lockwave-io/hostforge/internal/config"
)

// DefaultMaxAttempts bounds re-prompting of a single field.
const DefaultMaxAttempts = 5

// DefaultTimezone is offered when the operator has no preference.
const DefaultTimezone = "UTC"

// ErrAborted is returned when the operator declines the final confirmation
// or interrupts a prompt. It is a graceful outcome.
var ErrAborted = errors.New("hostforge: setup aborted by operator")

// Presenter shows the collector's feedback to the operator.
type Presenter interface {
	ShowConfig(cfg *config.Config)
	ShowInvalid(err error)
}

type nopPresenter struct{}

func (nopPresenter) ShowConfig(*config.Config) {}
func (nopPresenter) ShowInvalid(error)         {}

// Collector asks for every configuration field through Source.
type Collector struct {
	Source      InputSource
	Store       config.Store
	View        Presenter
	MaxAttempts int
}

// AcquireOptions tunes Acquire.
type AcquireOptions struct {
	// AssumeReuse takes a saved configuration without asking.
	AssumeReuse bool
	// Accept, when set, vets a newly collected configuration after the
	// operator confirms it and before it is saved.
	Accept func(cfg *config.Config) error
}

// Acquisition is the outcome of Acquire.
type Acquisition struct {
	Config *config.Config
	// Previous is the configuration saved before this run, if any.
	Previous *config.Config
	Reused   bool
}

// Acquire returns the configuration for this run. A saved configuration is
// offered for reuse; otherwise a new one is collected, confirmed and saved.
func (c *Collector) Acquire(ctx context.Context, opts AcquireOptions) (*Acquisition, error) {
	prev, err := c.Store.Load()
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return nil, err
	}
	acq := &Acquisition{Previous: prev}

	if prev != nil {
		c.view().ShowConfig(prev)
		reuse := opts.AssumeReuse
		if !reuse {
			reuse, err = c.Source.Confirm(ctx, Prompt{
				Key:     KeyReuse,
				Title:   "Reuse the saved configuration?",
				Default: "yes",
			})
			if err != nil {
				return nil, err
			}
		}
		if reuse {
			acq.Config = prev
			acq.Reused = true
			return acq, nil
		}
	}

	cfg, err := c.Collect(ctx)
	if err != nil {
		return nil, err
	}
	c.view().ShowConfig(cfg)
	ok, err := c.Source.Confirm(ctx, Prompt{
		Key:     KeyConfirm,
		Title:   "Apply this configuration?",
		Default: "no",
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAborted
	}
	if opts.Accept != nil {
		if err := opts.Accept(cfg); err != nil {
			return nil, err
		}
	}
	if err := c.Store.Save(cfg); err != nil {
		return nil, err
	}
	acq.Config = cfg
	return acq, nil
}

// Collect asks for every field in order. It does not save.
func (c *Collector) Collect(ctx context.Context) (*config.Config, error) {
	cfg := &config.Config{}
	var err error

	if cfg.Domain, err = c.askDomain(ctx); err != nil {
		return nil, err
	}
	if cfg.SSHKeys, err = c.askKeys(ctx); err != nil {
		return nil, err
	}
	if cfg.Profile, err = c.askProfile(ctx); err != nil {
		return nil, err
	}
	if cfg.SudoMode, err = c.askSudoMode(ctx); err != nil {
		return nil, err
	}
	if cfg.Timezone, err = c.askValidated(ctx, Prompt{
		Key:         KeyTimezone,
		Title:       "Timezone",
		Description: "IANA zone name, for example Europe/Paris",
		Default:     DefaultTimezone,
	}, config.ValidateTimezone); err != nil {
		return nil, err
	}
	if cfg.Tunnel, err = c.Source.Confirm(ctx, Prompt{
		Key:         KeyTunnel,
		Title:       "Set up a Cloudflare tunnel?",
		Description: "Routes traffic through cloudflared instead of opening ports 80/443",
		Default:     "no",
	}); err != nil {
		return nil, err
	}
	if cfg.AdminUser, err = c.askValidated(ctx, Prompt{
		Key:     KeyAdminUser,
		Title:   "Admin user",
		Default: config.DefaultAdminUser,
	}, config.ValidateUserName); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Collector) view() Presenter {
	if c.View == nil {
		return nopPresenter{}
	}
	return c.View
}

// retry runs fn until it succeeds or fails with something other than a
// validation error, at most MaxAttempts times.
func (c *Collector) retry(fn func() error) error {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	var last error
	for range attempts {
		err := fn()
		var verr *config.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		last = err
		c.view().ShowInvalid(err)
	}
	return fmt.Errorf("collector: giving up after %d attempts: %w", attempts, last)
}

func (c *Collector) askDomain(ctx context.Context) (string, error) {
	var domain string
	err := c.retry(func() error {
		raw, err := c.Source.Input(ctx, Prompt{
			Key:         KeyDomain,
			Title:       "Domain",
			Description: "Base domain served by this host, without scheme or path",
			Placeholder: "example.com",
		})
		if err != nil {
			return err
		}
		d := config.NormalizeDomain(raw)
		if err := config.ValidateDomain(d); err != nil {
			return err
		}
		again, err := c.Source.Input(ctx, Prompt{
			Key:   KeyDomainConfirm,
			Title: "Retype the domain",
		})
		if err != nil {
			return err
		}
		if config.NormalizeDomain(again) != d {
			return &config.ValidationError{Field: "domain", Value: d, Reason: "confirmation does not match"}
		}
		domain = d
		return nil
	})
	return domain, err
}

// askKeys collects public keys until an empty answer once at least one was
// accepted. A scripted source running out of keys ends the list the same way.
func (c *Collector) askKeys(ctx context.Context) ([]string, error) {
	var keys []string
	for {
		var key string
		done := false
		err := c.retry(func() error {
			p := Prompt{
				Key:         KeySSHKey,
				Title:       fmt.Sprintf("SSH public key #%d", len(keys)+1),
				Placeholder: "ssh-ed25519 AAAA... you@laptop",
			}
			if len(keys) > 0 {
				p.Description = "Leave empty to finish"
			}
			raw, err := c.Source.Input(ctx, p)
			if errors.Is(err, ErrNoAnswer) && len(keys) > 0 {
				done = true
				return nil
			}
			if err != nil {
				return err
			}
			raw = strings.TrimSpace(raw)
			if raw == "" {
				if len(keys) == 0 {
					return &config.ValidationError{Field: "ssh_keys", Reason: "at least one public key is required"}
				}
				done = true
				return nil
			}
			if err := config.ValidatePublicKey(raw); err != nil {
				return err
			}
			key = raw
			return nil
		})
		if err != nil {
			return nil, err
		}
		if done {
			return keys, nil
		}
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
}

// askProfile offers the closed profile menu. An out-of-menu answer is a hard
// error: there is no default profile.
func (c *Collector) askProfile(ctx context.Context) (config.Profile, error) {
	answer, err := c.Source.Select(ctx, Prompt{
		Key:   KeyProfile,
		Title: "Deployment profile",
	}, []Option{
		{Label: "full-stack: proxy, monitoring and application stack", Value: string(config.ProfileFullStack)},
		{Label: "monitoring: proxy and monitoring stack", Value: string(config.ProfileMonitoring)},
		{Label: "minimal: hardened host with reverse proxy only", Value: string(config.ProfileMinimal)},
	})
	if err != nil {
		return "", err
	}
	return config.ParseProfile(strings.TrimSpace(answer))
}

func (c *Collector) askSudoMode(ctx context.Context) (config.SudoMode, error) {
	answer, err := c.Source.Select(ctx, Prompt{
		Key:   KeySudoMode,
		Title: "Sudo for the admin user",
	}, []Option{
		{Label: "password: sudo asks for the user's password", Value: string(config.SudoPassword)},
		{Label: "passwordless: NOPASSWD sudo", Value: string(config.SudoPasswordless)},
	})
	if err != nil {
		return "", err
	}
	return config.ParseSudoMode(strings.TrimSpace(answer))
}

func (c *Collector) askValidated(ctx context.Context, p Prompt, validate func(string) error) (string, error) {
	var value string
	err := c.retry(func() error {
		raw, err := c.Source.Input(ctx, p)
		if err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			raw = p.Default
		}
		if err := validate(raw); err != nil {
			return err
		}
		value = raw
		return nil
	})
	return value, err
}
