package lakestore

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	athenatypes "github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/dgraph-io/badger/v4"
)

type workgroupRecord struct {
	Name           string    `json:"name"`
	OutputLocation string    `json:"outputLocation,omitempty"`
	CreateTime     time.Time `json:"createTime"`
}

func workgroupKey(name string) []byte {
	return joinKey(workgroupPrefix, name)
}

func (s *Store) seedWorkgroup(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var wg workgroupRecord
		found, err := getJSON(txn, workgroupKey(name), &wg)
		if err != nil || found {
			return err
		}
		return setJSON(txn, workgroupKey(name), workgroupRecord{Name: name, CreateTime: time.Now().UTC()})
	})
}

func (s *Store) UpdateWorkGroup(ctx context.Context, params *athena.UpdateWorkGroupInput, optFns ...func(*athena.Options)) (*athena.UpdateWorkGroupOutput, error) {
	if params == nil || aws.ToString(params.WorkGroup) == "" {
		return nil, athenaInvalidRequest("WorkGroup is required")
	}
	name := *params.WorkGroup
	err := s.db.Update(func(txn *badger.Txn) error {
		var wg workgroupRecord
		found, err := getJSON(txn, workgroupKey(name), &wg)
		if err != nil {
			return err
		}
		if !found {
			return athenaInvalidRequest("WorkGroup %s is not found.", name)
		}
		if cu := params.ConfigurationUpdates; cu != nil && cu.ResultConfigurationUpdates != nil {
			rc := cu.ResultConfigurationUpdates
			if aws.ToBool(rc.RemoveOutputLocation) {
				wg.OutputLocation = ""
			} else if rc.OutputLocation != nil {
				wg.OutputLocation = *rc.OutputLocation
			}
		}
		return setJSON(txn, workgroupKey(name), wg)
	})
	if err != nil {
		return nil, err
	}
	return &athena.UpdateWorkGroupOutput{}, nil
}

func (s *Store) GetWorkGroup(ctx context.Context, params *athena.GetWorkGroupInput, optFns ...func(*athena.Options)) (*athena.GetWorkGroupOutput, error) {
	if params == nil || aws.ToString(params.WorkGroup) == "" {
		return nil, athenaInvalidRequest("WorkGroup is required")
	}
	var wg workgroupRecord
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getJSON(txn, workgroupKey(*params.WorkGroup), &wg)
		if err != nil {
			return err
		}
		if !found {
			return athenaInvalidRequest("WorkGroup %s is not found.", *params.WorkGroup)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := &athenatypes.WorkGroup{
		Name:          aws.String(wg.Name),
		State:         athenatypes.WorkGroupStateEnabled,
		CreationTime:  aws.Time(wg.CreateTime),
		Configuration: &athenatypes.WorkGroupConfiguration{},
	}
	if wg.OutputLocation != "" {
		out.Configuration.ResultConfiguration = &athenatypes.ResultConfiguration{
			OutputLocation: aws.String(wg.OutputLocation),
		}
	}
	return &athena.GetWorkGroupOutput{WorkGroup: out}, nil
}
