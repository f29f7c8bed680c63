package doors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Sensor payload keys. The classifier publishes "Door State"; older firmware
// used "door_state".
const (
	keyDoorState       = "Door State"
	keyDoorStateLegacy = "door_state"
	keyTimestamp       = "timestamp"
)

// DecodeSensorPayload normalises a raw sensor message into a DoorUpdate.
func DecodeSensorPayload(raw []byte) (DoorUpdate, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return DoorUpdate{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if fields == nil {
		return DoorUpdate{}, ErrInvalidPayload
	}

	update := DoorUpdate{DoorState: UnknownState, Timestamp: "0"}
	if value, ok := fields[keyDoorState]; ok {
		update.DoorState = stringify(value)
	} else if value, ok := fields[keyDoorStateLegacy]; ok {
		update.DoorState = stringify(value)
	}
	if value, ok := fields[keyTimestamp]; ok {
		update.Timestamp = stringify(value)
	}
	return update, nil
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := v.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(raw)
	}
}
