// Package config loads the propertyd configuration.
//
// Values come from, in increasing priority: built-in defaults, a YAML
// file, and PROPERTYD_* environment variables. Secrets (JWT secret, broker
// and InfluxDB credentials) are best supplied through the environment.
//
//	cfg, err := config.Load("configs/propertyd.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.Address())
package config
