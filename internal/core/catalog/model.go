package catalog

// Device is one field device from the gateway's metadata API.
type Device struct {
	ID      int64  `json:"id" example:"1"`
	FieldID string `json:"field_id" example:"PLC-0017"`
	Name    string `json:"name" example:"Compressor Hall A"`
}

// Variable is one monitored point owned by a Device.
type Variable struct {
	ID       int64  `json:"id" example:"10"`
	DeviceID int64  `json:"device_id" example:"1"`
	Code     string `json:"code" example:"KWH_TOTAL"`
	Name     string `json:"name" example:"Total active energy"`
	Unit     string `json:"unit" example:"kWh"`
	Enabled  bool   `json:"enabled" example:"true"`
}

// Catalog is an immutable snapshot of the device/variable metadata.
// A refresh replaces the whole snapshot; nothing mutates one in place.
type Catalog struct {
	Devices   []Device
	Variables []Variable

	devicesByID     map[int64]Device
	variablesByID   map[int64]Variable
	variablesByCode map[string]Variable
}

// New builds a snapshot with its lookup indexes.
func New(devices []Device, variables []Variable) *Catalog {
	c := &Catalog{
		Devices:         devices,
		Variables:       variables,
		devicesByID:     make(map[int64]Device, len(devices)),
		variablesByID:   make(map[int64]Variable, len(variables)),
		variablesByCode: make(map[string]Variable, len(variables)),
	}
	for _, d := range devices {
		c.devicesByID[d.ID] = d
	}
	for _, v := range variables {
		c.variablesByID[v.ID] = v
		if v.Code != "" {
			c.variablesByCode[v.Code] = v
		}
	}
	return c
}

func (c *Catalog) DeviceByID(id int64) (Device, bool) {
	d, ok := c.devicesByID[id]
	return d, ok
}

func (c *Catalog) VariableByID(id int64) (Variable, bool) {
	v, ok := c.variablesByID[id]
	return v, ok
}

func (c *Catalog) VariableByCode(code string) (Variable, bool) {
	v, ok := c.variablesByCode[code]
	return v, ok
}

// VariablesForDevice returns the variables joined to one device, in catalog order.
func (c *Catalog) VariablesForDevice(deviceID int64) []Variable {
	var out []Variable
	for _, v := range c.Variables {
		if v.DeviceID == deviceID {
			out = append(out, v)
		}
	}
	return out
}
