package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Credentials is the static access key pair from the credentials file.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// ErrMissingCredentials is returned when the file lacks [AWS] KEY or SECRET.
var ErrMissingCredentials = errors.New("missing credentials")

// LoadCredentials reads an INI file with an [AWS] section holding KEY and
// SECRET. LAKE_AWS_KEY and LAKE_AWS_SECRET override the file.
func LoadCredentials(path string) (Credentials, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	v.SetEnvPrefix("LAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Credentials{}, fmt.Errorf("read credentials file %s: %w", path, err)
	}

	creds := Credentials{
		AccessKeyID:     v.GetString("aws.key"),
		SecretAccessKey: v.GetString("aws.secret"),
	}
	var missing []string
	if creds.AccessKeyID == "" {
		missing = append(missing, "KEY")
	}
	if creds.SecretAccessKey == "" {
		missing = append(missing, "SECRET")
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("%w: %s has no %s in section [AWS]", ErrMissingCredentials, path, strings.Join(missing, ", "))
	}
	return creds, nil
}
