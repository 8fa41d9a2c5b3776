// Package config provides configuration management for WorkService.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the root configuration structure (WorkService.json).
type Config struct {
	Service      ServiceConfig `json:"Service"`
	Server       ServerConfig  `json:"Server"`
	DrainTimeout time.Duration `json:"DrainTimeout"` // wait for the server to unwind after a stop, 0 = don't wait
}

// ServiceConfig describes how the process registers with the service manager.
type ServiceConfig struct {
	Name         string `json:"Name"`
	DisplayName  string `json:"DisplayName"`
	Description  string `json:"Description"`
	UserStopCode int    `json:"UserStopCode"` // custom control code treated like Stop (128-255)
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Host              string        `json:"Host"`
	Port              int           `json:"Port"`
	Greeting          string        `json:"Greeting"`
	ReadHeaderTimeout time.Duration `json:"ReadHeaderTimeout"`
	ReadTimeout       time.Duration `json:"ReadTimeout"`
	WriteTimeout      time.Duration `json:"WriteTimeout"`
	IdleTimeout       time.Duration `json:"IdleTimeout"`
	ShutdownTimeout   time.Duration `json:"ShutdownTimeout"` // 0 closes connections immediately
	MaxConnections    int           `json:"MaxConnections"`  // 0 = unlimited
}

// Address returns the host:port pair the server binds to.
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Defaults used when a setting is absent.
const (
	DefaultServiceName  = "work_application_service"
	DefaultUserStopCode = 130
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8080
	DefaultGreeting     = "Hello friendWorks!\r\n"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:         DefaultServiceName,
			DisplayName:  "Work Application Service",
			Description:  "Serves the work application HTTP API.",
			UserStopCode: DefaultUserStopCode,
		},
		Server: ServerConfig{
			Host:              DefaultHost,
			Port:              DefaultPort,
			Greeting:          DefaultGreeting,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Merge applies non-zero values from other to this config.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Service.Name != "" {
		c.Service.Name = other.Service.Name
	}
	if other.Service.DisplayName != "" {
		c.Service.DisplayName = other.Service.DisplayName
	}
	if other.Service.Description != "" {
		c.Service.Description = other.Service.Description
	}
	if other.Service.UserStopCode != 0 {
		c.Service.UserStopCode = other.Service.UserStopCode
	}

	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.Greeting != "" {
		c.Server.Greeting = other.Server.Greeting
	}
	if other.Server.ReadHeaderTimeout != 0 {
		c.Server.ReadHeaderTimeout = other.Server.ReadHeaderTimeout
	}
	if other.Server.ReadTimeout != 0 {
		c.Server.ReadTimeout = other.Server.ReadTimeout
	}
	if other.Server.WriteTimeout != 0 {
		c.Server.WriteTimeout = other.Server.WriteTimeout
	}
	if other.Server.IdleTimeout != 0 {
		c.Server.IdleTimeout = other.Server.IdleTimeout
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}
	if other.Server.MaxConnections != 0 {
		c.Server.MaxConnections = other.Server.MaxConnections
	}

	if other.DrainTimeout != 0 {
		c.DrainTimeout = other.DrainTimeout
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Service.Name == "" {
		errs = append(errs, errors.New("Service.Name must not be empty"))
	}
	if c.Service.UserStopCode < 128 || c.Service.UserStopCode > 255 {
		errs = append(errs, fmt.Errorf("Service.UserStopCode %d outside user-defined range 128-255", c.Service.UserStopCode))
	}
	if c.Server.Host == "" {
		errs = append(errs, errors.New("Server.Host must not be empty"))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("Server.Port %d outside 1-65535", c.Server.Port))
	}
	if c.Server.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("Server.MaxConnections %d must not be negative", c.Server.MaxConnections))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("Server.ShutdownTimeout must not be negative"))
	}
	if c.DrainTimeout < 0 {
		errs = append(errs, errors.New("DrainTimeout must not be negative"))
	}

	return errors.Join(errs...)
}
