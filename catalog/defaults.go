package catalog

var customerSchema = Schema{
	{Name: "serialnumber", Type: TypeString},
	{Name: "sharewithpublicasofdate", Type: TypeString},
	{Name: "birthday", Type: TypeString},
	{Name: "registrationdate", Type: TypeString},
	{Name: "sharewithresearchasofdate", Type: TypeString},
	{Name: "customername", Type: TypeString},
	{Name: "email", Type: TypeString},
	{Name: "lastupdatedate", Type: TypeString},
	{Name: "phone", Type: TypeString},
	{Name: "sharewithfriendsasofdate", Type: TypeString},
}

var stepTrainerSchema = Schema{
	{Name: "sensorReadingTime", Type: TypeTimestamp},
	{Name: "serialNumber", Type: TypeString},
	{Name: "distanceFromObject", Type: TypeDouble},
}

var accelerometerSchema = Schema{
	{Name: "timeStamp", Type: TypeTimestamp},
	{Name: "user", Type: TypeString},
	{Name: "x", Type: TypeDouble},
	{Name: "y", Type: TypeDouble},
	{Name: "z", Type: TypeDouble},
}

var machineLearningCuratedSchema = Schema{
	{Name: "user", Type: TypeString},
	{Name: "sensorReadingTime", Type: TypeTimestamp},
	{Name: "serialNumber", Type: TypeString},
	{Name: "distanceFromObject", Type: TypeDouble},
	{Name: "x", Type: TypeDouble},
	{Name: "y", Type: TypeDouble},
	{Name: "z", Type: TypeDouble},
}

// DefaultDefinition is the STEDI data-lake layout: customer, accelerometer
// and step trainer data flowing from landing to trusted, plus two curated
// tables.
func DefaultDefinition() Definition {
	return Definition{
		Schemas: map[string]Schema{
			"customer":                 customerSchema.clone(),
			"accelerometer":            accelerometerSchema.clone(),
			"step_trainer":             stepTrainerSchema.clone(),
			"machine_learning_curated": machineLearningCuratedSchema.clone(),
		},
		Landing: []string{
			"accelerometer_landing",
			"customer_landing",
			"step_trainer_landing",
		},
		Trusted: []TableRef{
			{Name: "customer_trusted", Schema: "customer"},
			{Name: "accelerometer_trusted", Schema: "accelerometer"},
			{Name: "step_trainer_trusted", Schema: "step_trainer"},
			{Name: "machine_learning_curated", Schema: "machine_learning_curated"},
			{Name: "customer_curated", Schema: "customer"},
		},
	}
}

// DefaultRegistry returns the registry built from DefaultDefinition.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultDefinition())
	if err != nil {
		panic(err)
	}
	return r
}
