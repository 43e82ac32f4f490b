package validators

import "go.mongodb.org/mongo-driver/bson"

var TokenLedgerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"day_key",
			"sequence_number",
			"department_id",
			"patient_id",
			"token",
			"issued",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"day_key": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"sequence_number": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"department_id": bson.M{
				"bsonType": "string",
			},

			"doctor_id": bson.M{
				"bsonType": []string{"string", "null"},
			},

			"patient_id": bson.M{
				"bsonType": "string",
			},

			"token": bson.M{
				"bsonType": "string",
				"pattern":  `^TKN-\d{8}-[0-9a-f]{6}$`,
			},

			"issued": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"patient_id", "number"},
					"properties": bson.M{
						"patient_id": bson.M{"bsonType": "string"},
						"number":     bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
						"doctor_id":  bson.M{"bsonType": []string{"string", "null"}},
						"issued_at":  bson.M{"bsonType": "date"},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
