package a2l

// NoInputQuantity is the sentinel used in place of a missing input_quantity
// reference (§4.6 step 8).
const NoInputQuantity = "NO_INPUT_QUANTITY"

// FindMeasurement returns the named MEASUREMENT, or nil.
func (m *Module) FindMeasurement(name string) *Measurement {
	for _, e := range m.Measurements {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindCharacteristic returns the named CHARACTERISTIC, or nil.
func (m *Module) FindCharacteristic(name string) *Characteristic {
	for _, e := range m.Characteristics {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindAxisPts returns the named AXIS_PTS, or nil.
func (m *Module) FindAxisPts(name string) *AxisPts {
	for _, e := range m.AxisPtsList {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindRecordLayout returns the named RECORD_LAYOUT, or nil.
func (m *Module) FindRecordLayout(name string) *RecordLayout {
	for _, e := range m.RecordLayouts {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindCompuMethod returns the named COMPU_METHOD, or nil.
func (m *Module) FindCompuMethod(name string) *CompuMethod {
	for _, e := range m.CompuMethods {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindCompuVtab returns the named COMPU_VTAB, or nil.
func (m *Module) FindCompuVtab(name string) *CompuVtab {
	for _, e := range m.CompuVtabs {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindCompuVtabRange returns the named COMPU_VTAB_RANGE, or nil.
func (m *Module) FindCompuVtabRange(name string) *CompuVtabRange {
	for _, e := range m.CompuVtabRanges {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindInstance returns the named INSTANCE, or nil.
func (m *Module) FindInstance(name string) *Instance {
	for _, e := range m.Instances {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindTypedefStructure returns the named TYPEDEF_STRUCTURE, or nil.
func (m *Module) FindTypedefStructure(name string) *TypedefStructure {
	for _, e := range m.TypedefStructures {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindTypedefMeasurement returns the named TYPEDEF_MEASUREMENT, or nil.
func (m *Module) FindTypedefMeasurement(name string) *TypedefMeasurement {
	for _, e := range m.TypedefMeasurements {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindTypedefCharacteristic returns the named TYPEDEF_CHARACTERISTIC, or nil.
func (m *Module) FindTypedefCharacteristic(name string) *TypedefCharacteristic {
	for _, e := range m.TypedefCharacteristics {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindTypedefAxis returns the named TYPEDEF_AXIS, or nil.
func (m *Module) FindTypedefAxis(name string) *TypedefAxis {
	for _, e := range m.TypedefAxes {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindTypedefBlob returns the named TYPEDEF_BLOB, or nil.
func (m *Module) FindTypedefBlob(name string) *TypedefBlob {
	for _, e := range m.TypedefBlobs {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// FindGroup returns the named GROUP, or nil.
func (m *Module) FindGroup(name string) *Group {
	for _, e := range m.Groups {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// AnyEntityExists reports whether name is used by a MEASUREMENT,
// CHARACTERISTIC, AXIS_PTS, INSTANCE or BLOB; TYPEDEF_* names are not
// checked.
func (m *Module) AnyEntityExists(name string) bool {
	if m.FindMeasurement(name) != nil || m.FindCharacteristic(name) != nil ||
		m.FindAxisPts(name) != nil || m.FindInstance(name) != nil {
		return true
	}
	for _, b := range m.Blobs {
		if b.Name == name {
			return true
		}
	}
	return false
}

// RemoveMeasurement deletes the named MEASUREMENT and reports whether it was
// present.
func (m *Module) RemoveMeasurement(name string) bool {
	for i, e := range m.Measurements {
		if e.Name == name {
			m.Measurements = append(m.Measurements[:i], m.Measurements[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveCharacteristic deletes the named CHARACTERISTIC and reports whether
// it was present.
func (m *Module) RemoveCharacteristic(name string) bool {
	for i, e := range m.Characteristics {
		if e.Name == name {
			m.Characteristics = append(m.Characteristics[:i], m.Characteristics[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveAxisPts deletes the named AXIS_PTS and reports whether it was
// present.
func (m *Module) RemoveAxisPts(name string) bool {
	for i, e := range m.AxisPtsList {
		if e.Name == name {
			m.AxisPtsList = append(m.AxisPtsList[:i], m.AxisPtsList[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveTypedefStructure deletes the named TYPEDEF_STRUCTURE.
func (m *Module) RemoveTypedefStructure(name string) bool {
	for i, e := range m.TypedefStructures {
		if e.Name == name {
			m.TypedefStructures = append(m.TypedefStructures[:i], m.TypedefStructures[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveStringFromList returns s with every occurrence of name removed,
// preserving order. Used by the §4.6 step 8 cleanup pass over GROUP/FUNCTION
// identifier lists.
func RemoveStringFromList(list []string, name string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != name {
			out = append(out, s)
		}
	}
	return out
}

// Contains reports whether name appears in list.
func Contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}
