package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wms-platform/reallocation-service/internal/domain"
)

// seedFile describes starting allocations for local runs and demos
type seedFile struct {
	Materials []string `yaml:"materials"`
	Consumers []struct {
		Consumer    string `yaml:"consumer"`
		Allocations []struct {
			MaterialID string `yaml:"materialId"`
			Allocated  string `yaml:"allocated"`
			Used       string `yaml:"used"`
		} `yaml:"allocations"`
	} `yaml:"consumers"`
}

type seedTargets struct {
	putConsumer func(ctx context.Context, record *domain.ConsumerRecord) error
	addMaterial func(materialID string)
}

func loadSeed(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

// records converts the seed into consumer records, validating every quantity
func (s *seedFile) records() ([]*domain.ConsumerRecord, error) {
	records := make([]*domain.ConsumerRecord, 0, len(s.Consumers))
	for _, c := range s.Consumers {
		ref, err := domain.ParseConsumerRef(c.Consumer)
		if err != nil {
			return nil, fmt.Errorf("seed consumer %q: %w", c.Consumer, err)
		}

		record := domain.NewConsumerRecord(ref)
		for _, a := range c.Allocations {
			allocated, err := decimal.NewFromString(a.Allocated)
			if err != nil {
				return nil, fmt.Errorf("seed %s/%s allocated: %w", c.Consumer, a.MaterialID, err)
			}
			used := decimal.Zero
			if a.Used != "" {
				if used, err = decimal.NewFromString(a.Used); err != nil {
					return nil, fmt.Errorf("seed %s/%s used: %w", c.Consumer, a.MaterialID, err)
				}
			}
			if err := record.SetAllocatedQuantity(a.MaterialID, allocated); err != nil {
				return nil, fmt.Errorf("seed %s/%s: %w", c.Consumer, a.MaterialID, err)
			}
			for i := range record.Allocations {
				if record.Allocations[i].MaterialID == a.MaterialID {
					record.Allocations[i].UsedQuantity = used
				}
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *seedFile) apply(ctx context.Context, targets seedTargets) error {
	records, err := s.records()
	if err != nil {
		return err
	}
	for _, record := range records {
		if err := targets.putConsumer(ctx, record); err != nil {
			return fmt.Errorf("failed to seed consumer %s: %w", record.Consumer, err)
		}
	}
	if targets.addMaterial != nil {
		for _, id := range s.Materials {
			targets.addMaterial(id)
		}
	}
	return nil
}
