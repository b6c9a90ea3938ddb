package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Service 参与方注册信息
type Service struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// LoadServices 读取参与方列表, 任何错误都应当终止启动
func LoadServices(path string) ([]Service, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read service config file: %w", err)
	}
	return ParseServices(b)
}

func ParseServices(b []byte) ([]Service, error) {
	var doc struct {
		Services *[]Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("error while parsing the yaml file: %w", err)
	}
	if doc.Services == nil {
		return nil, fmt.Errorf("service list not defined")
	}

	seen := make(map[string]struct{}, len(*doc.Services))
	for i, svc := range *doc.Services {
		if svc.Name == "" || svc.Address == "" {
			return nil, fmt.Errorf("bad service config at #%d", i)
		}
		if _, ok := seen[svc.Name]; ok {
			return nil, fmt.Errorf("duplicate service: %s", svc.Name)
		}
		seen[svc.Name] = struct{}{}
	}
	return *doc.Services, nil
}
