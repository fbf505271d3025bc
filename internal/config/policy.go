package config

import (
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Policy carries the business limits that operators may tune without a
// redeploy.
type Policy struct {
	Checkout   CheckoutPolicy   `mapstructure:"checkout"`
	Withdrawal WithdrawalPolicy `mapstructure:"withdrawal"`
	APIKey     APIKeyPolicy     `mapstructure:"apiKey"`
	Lists      ListPolicy       `mapstructure:"lists"`
}

type CheckoutPolicy struct {
	MinAmount            int64 `mapstructure:"minAmount"`
	DefaultAmount        int64 `mapstructure:"defaultAmount"`
	DescriptionMaxLength int   `mapstructure:"descriptionMaxLength"`
}

type WithdrawalPolicy struct {
	Step          int64 `mapstructure:"step"`
	NoteMaxLength int   `mapstructure:"noteMaxLength"`
}

type APIKeyPolicy struct {
	DefaultName   string `mapstructure:"defaultName"`
	NameMaxLength int    `mapstructure:"nameMaxLength"`
}

type ListPolicy struct {
	Overview         int `mapstructure:"overview"`
	AdminUsers       int `mapstructure:"adminUsers"`
	AdminAudit       int `mapstructure:"adminAudit"`
	AdminWithdrawals int `mapstructure:"adminWithdrawals"`
}

func DefaultPolicy() Policy {
	return Policy{
		Checkout: CheckoutPolicy{
			MinAmount:            1000,
			DefaultAmount:        10000,
			DescriptionMaxLength: 200,
		},
		Withdrawal: WithdrawalPolicy{
			Step:          1000,
			NoteMaxLength: 200,
		},
		APIKey: APIKeyPolicy{
			DefaultName:   "API Key",
			NameMaxLength: 80,
		},
		Lists: ListPolicy{
			Overview:         20,
			AdminUsers:       50,
			AdminAudit:       100,
			AdminWithdrawals: 100,
		},
	}
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

// NewPolicyHolder reads policy.yml (or POLICY_FILE) and keeps it in sync with
// the file on disk. A missing file yields the defaults.
func NewPolicyHolder(cfg Config, log *zap.Logger) (*PolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.policy")

	v := viper.New()
	if path := strings.TrimSpace(cfg.PolicyFile); path != "" {
		v.SetConfigFile(filepath.Clean(path))
	} else {
		v.SetConfigName("policy")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/kograph")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("KOGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setPolicyDefaults(v, DefaultPolicy())

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	p, err := decodePolicy(v)
	if err != nil {
		return nil, err
	}
	if err := validatePolicy(p); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(p)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePolicy(v)
		if err != nil {
			log.Warn("policy reload failed", zap.Error(err))
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Warn("invalid policy ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("policy reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	if h == nil {
		return DefaultPolicy()
	}
	p, ok := h.current.Load().(Policy)
	if !ok {
		return DefaultPolicy()
	}
	return p
}

// decodePolicy goes through AllSettings so file values are merged with the
// nested defaults.
func decodePolicy(v *viper.Viper) (Policy, error) {
	var doc struct {
		Policy Policy `mapstructure:"policy"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return Policy{}, err
	}
	return doc.Policy, nil
}

func setPolicyDefaults(v *viper.Viper, d Policy) {
	v.SetDefault("policy.checkout.minAmount", d.Checkout.MinAmount)
	v.SetDefault("policy.checkout.defaultAmount", d.Checkout.DefaultAmount)
	v.SetDefault("policy.checkout.descriptionMaxLength", d.Checkout.DescriptionMaxLength)
	v.SetDefault("policy.withdrawal.step", d.Withdrawal.Step)
	v.SetDefault("policy.withdrawal.noteMaxLength", d.Withdrawal.NoteMaxLength)
	v.SetDefault("policy.apiKey.defaultName", d.APIKey.DefaultName)
	v.SetDefault("policy.apiKey.nameMaxLength", d.APIKey.NameMaxLength)
	v.SetDefault("policy.lists.overview", d.Lists.Overview)
	v.SetDefault("policy.lists.adminUsers", d.Lists.AdminUsers)
	v.SetDefault("policy.lists.adminAudit", d.Lists.AdminAudit)
	v.SetDefault("policy.lists.adminWithdrawals", d.Lists.AdminWithdrawals)
}

func validatePolicy(p Policy) error {
	switch {
	case p.Checkout.MinAmount <= 0:
		return errors.New("policy.checkout.minAmount must be positive")
	case p.Checkout.DefaultAmount < p.Checkout.MinAmount:
		return errors.New("policy.checkout.defaultAmount below minAmount")
	case p.Checkout.DescriptionMaxLength <= 0:
		return errors.New("policy.checkout.descriptionMaxLength must be positive")
	case p.Withdrawal.Step <= 0:
		return errors.New("policy.withdrawal.step must be positive")
	case p.Withdrawal.NoteMaxLength <= 0:
		return errors.New("policy.withdrawal.noteMaxLength must be positive")
	case strings.TrimSpace(p.APIKey.DefaultName) == "":
		return errors.New("policy.apiKey.defaultName cannot be empty")
	case p.APIKey.NameMaxLength <= 0:
		return errors.New("policy.apiKey.nameMaxLength must be positive")
	case p.Lists.Overview <= 0, p.Lists.AdminUsers <= 0, p.Lists.AdminAudit <= 0, p.Lists.AdminWithdrawals <= 0:
		return errors.New("policy.lists sizes must be positive")
	}
	return nil
}
