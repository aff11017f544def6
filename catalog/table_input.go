package catalog

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	gluetypes "github.com/aws/aws-sdk-go-v2/service/glue/types"
)

const (
	InputFormat  = "org.apache.hadoop.mapred.TextInputFormat"
	OutputFormat = "org.apache.hadoop.hive.ql.io.HiveIgnoreKeyTextOutputFormat"

	// JSONSerDe reads schema-bound tables.
	JSONSerDe = "org.openx.data.jsonserde.JsonSerDe"
	// LazySimpleSerDe backs schema-less tables, interpreted at query time.
	LazySimpleSerDe = "org.apache.hadoop.hive.serde2.lazy.LazySimpleSerDe"

	tableTypeExternal = "EXTERNAL_TABLE"
	classification    = "json"
)

// TableInput builds the Glue table descriptor for t.
func TableInput(t TableSpec) *gluetypes.TableInput {
	sd := &gluetypes.StorageDescriptor{
		Columns:      []gluetypes.Column{},
		Location:     aws.String(t.Location),
		InputFormat:  aws.String(InputFormat),
		OutputFormat: aws.String(OutputFormat),
	}
	if len(t.Schema) > 0 {
		for _, c := range t.Schema {
			sd.Columns = append(sd.Columns, gluetypes.Column{
				Name: aws.String(c.Name),
				Type: aws.String(string(c.Type)),
			})
		}
		sd.SerdeInfo = &gluetypes.SerDeInfo{
			SerializationLibrary: aws.String(JSONSerDe),
			Parameters:           map[string]string{"paths": strings.Join(t.Schema.Names(), ",")},
		}
	} else {
		sd.SerdeInfo = &gluetypes.SerDeInfo{
			SerializationLibrary: aws.String(LazySimpleSerDe),
		}
	}

	return &gluetypes.TableInput{
		Name:              aws.String(t.Name),
		TableType:         aws.String(tableTypeExternal),
		StorageDescriptor: sd,
		Parameters: map[string]string{
			"classification":  classification,
			"compressionType": "none",
		},
	}
}
