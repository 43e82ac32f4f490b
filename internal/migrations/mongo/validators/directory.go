package validators

import "go.mongodb.org/mongo-driver/bson"

// PatientValidator is bypassed by the token link write, which only touches
// current_token and the doctor assignment.
var PatientValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "department_id"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":                bson.M{"bsonType": "objectId"},
			"name":               bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"department_id":      bson.M{"bsonType": "string"},
			"is_new_patient":     bson.M{"bsonType": "bool"},
			"assigned_doctor_id": bson.M{"bsonType": []string{"string", "null"}},
			"current_token": bson.M{
				"bsonType": []string{"object", "null"},
				"properties": bson.M{
					"ledger_id":     bson.M{"bsonType": "string"},
					"day_key":       bson.M{"bsonType": "string"},
					"ticket_number": bson.M{"bsonType": []string{"int", "long"}},
				},
			},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var DoctorValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "department_id"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":             bson.M{"bsonType": "objectId"},
			"name":            bson.M{"bsonType": "string"},
			"department_id":   bson.M{"bsonType": "string"},
			"active_patients": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
		},
	},
}

var DepartmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":  bson.M{"bsonType": "objectId"},
			"name": bson.M{"bsonType": "string"},
		},
	},
}
