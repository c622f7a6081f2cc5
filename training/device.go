package training

// Device is a compute device batches can be moved to.
type Device interface {
	Name() string
}

// DeviceMovable is implemented by tensor-like batch leaves that know how to
// move themselves to a device. The move is synchronous; when MoveTo returns
// nil the data is resident on the target device.
type DeviceMovable interface {
	MoveTo(device Device) error
}

// TransferBatchToDevice moves every movable leaf of a nested batch to the
// device. A batch is a string-keyed map whose values may be movable leaves,
// nested maps, or item lists (sequence models group per-position items in
// lists). Non-movable values such as subject identifiers pass through
// untouched. Any leaf failure fails the whole transfer.
func TransferBatchToDevice(batch interface{}, device Device) error {
	m, ok := batch.(map[string]interface{})
	if !ok {
		return malformedBatchf("batch must be a string-keyed map, got %T", batch)
	}
	for key, value := range m {
		if err := transferValue(value, device); err != nil {
			return malformedBatchf("transferring %q: %v", key, err)
		}
	}
	return nil
}

func transferValue(value interface{}, device Device) error {
	switch v := value.(type) {
	case DeviceMovable:
		return v.MoveTo(device)
	case map[string]interface{}:
		for _, nested := range v {
			if err := transferValue(nested, device); err != nil {
				return err
			}
		}
		return nil
	case []interface{}:
		for _, item := range v {
			if err := transferValue(item, device); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
