package lakestore

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/dgraph-io/badger/v4"
)

type databaseRecord struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	LocationURI string    `json:"locationUri,omitempty"`
	CreateTime  time.Time `json:"createTime"`
}

type tableRecord struct {
	Database   string               `json:"database"`
	Input      gluetypes.TableInput `json:"input"`
	CreateTime time.Time            `json:"createTime"`
}

func databaseKey(name string) []byte {
	return joinKey(databasePrefix, name)
}

func tableKey(database, name string) []byte {
	return joinKey(tablePrefix, database, name)
}

// Glue stores database and table names in lower case.
func glueName(name *string) string {
	return strings.ToLower(aws.ToString(name))
}

func (s *Store) checkCatalog(catalogID *string) error {
	if catalogID != nil && *catalogID != s.account {
		return &gluetypes.AccessDeniedException{Message: aws.String("Cross-account catalog access is not permitted")}
	}
	return nil
}

func (s *Store) CreateDatabase(ctx context.Context, params *glue.CreateDatabaseInput, optFns ...func(*glue.Options)) (*glue.CreateDatabaseOutput, error) {
	if params == nil || params.DatabaseInput == nil || aws.ToString(params.DatabaseInput.Name) == "" {
		return nil, glueInvalidInput("DatabaseInput.Name is required")
	}
	if err := s.checkCatalog(params.CatalogId); err != nil {
		return nil, err
	}
	name := glueName(params.DatabaseInput.Name)
	err := s.db.Update(func(txn *badger.Txn) error {
		var existing databaseRecord
		found, err := getJSON(txn, databaseKey(name), &existing)
		if err != nil {
			return err
		}
		if found {
			return glueAlreadyExists("Database already exists.")
		}
		return setJSON(txn, databaseKey(name), databaseRecord{
			Name:        name,
			Description: aws.ToString(params.DatabaseInput.Description),
			LocationURI: aws.ToString(params.DatabaseInput.LocationUri),
			CreateTime:  time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &glue.CreateDatabaseOutput{}, nil
}

func (s *Store) CreateTable(ctx context.Context, params *glue.CreateTableInput, optFns ...func(*glue.Options)) (*glue.CreateTableOutput, error) {
	if params == nil || params.DatabaseName == nil {
		return nil, glueInvalidInput("DatabaseName is required")
	}
	if params.TableInput == nil || aws.ToString(params.TableInput.Name) == "" {
		return nil, glueInvalidInput("TableInput.Name is required")
	}
	if err := s.checkCatalog(params.CatalogId); err != nil {
		return nil, err
	}
	database := glueName(params.DatabaseName)
	name := glueName(params.TableInput.Name)

	input := *params.TableInput
	input.Name = aws.String(name)

	err := s.db.Update(func(txn *badger.Txn) error {
		var db databaseRecord
		found, err := getJSON(txn, databaseKey(database), &db)
		if err != nil {
			return err
		}
		if !found {
			return glueNotFound("Database %s not found.", database)
		}
		var existing tableRecord
		found, err = getJSON(txn, tableKey(database, name), &existing)
		if err != nil {
			return err
		}
		if found {
			return glueAlreadyExists("Table already exists.")
		}
		return setJSON(txn, tableKey(database, name), tableRecord{
			Database:   database,
			Input:      input,
			CreateTime: time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}
	return &glue.CreateTableOutput{}, nil
}

func (s *Store) GetTable(ctx context.Context, params *glue.GetTableInput, optFns ...func(*glue.Options)) (*glue.GetTableOutput, error) {
	if params == nil || params.DatabaseName == nil || params.Name == nil {
		return nil, glueInvalidInput("DatabaseName and Name are required")
	}
	if err := s.checkCatalog(params.CatalogId); err != nil {
		return nil, err
	}
	database := glueName(params.DatabaseName)
	name := glueName(params.Name)

	var rec tableRecord
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := getJSON(txn, tableKey(database, name), &rec)
		if err != nil {
			return err
		}
		if !found {
			return glueNotFound("Table %s not found.", name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	in := rec.Input
	return &glue.GetTableOutput{
		Table: &gluetypes.Table{
			Name:              in.Name,
			DatabaseName:      aws.String(rec.Database),
			CatalogId:         aws.String(s.account),
			Description:       in.Description,
			Owner:             in.Owner,
			TableType:         in.TableType,
			Parameters:        in.Parameters,
			PartitionKeys:     in.PartitionKeys,
			StorageDescriptor: in.StorageDescriptor,
			CreateTime:        aws.Time(rec.CreateTime),
			UpdateTime:        aws.Time(rec.CreateTime),
		},
	}, nil
}
