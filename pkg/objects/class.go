package objects

// Item class ids of a class definition.
const (
	ClassItemEntity uint16 = 0x1F2
	ClassItemObject uint16 = 0x1F3
)

// Class is one entry of the classes section. Class numbers start at 500 and
// are used as type codes by the records they describe.
type Class struct {
	Number             uint16
	ProxyFlags         uint16
	AppName            string
	CppName            string
	DXFName            string
	WasZombie          bool
	ItemClassID        uint16
	InstanceCount      int32
	DwgVersion         uint16
	MaintenanceVersion uint16
	Unknown1           int32
	Unknown2           int32
}

// IsEntity reports whether records of this class are entities.
func (c *Class) IsEntity() bool {
	return c.ItemClassID == ClassItemEntity
}

// ClassTable indexes classes by number.
type ClassTable struct {
	classes []*Class
	byNum   map[uint16]*Class
}

// NewClassTable builds a table from classes in section order.
func NewClassTable(classes []*Class) *ClassTable {
	t := &ClassTable{byNum: make(map[uint16]*Class, len(classes))}
	for _, c := range classes {
		t.Add(c)
	}
	return t
}

// Add appends c, replacing any class with the same number.
func (t *ClassTable) Add(c *Class) {
	if t.byNum == nil {
		t.byNum = make(map[uint16]*Class)
	}
	if old, ok := t.byNum[c.Number]; ok {
		for i, x := range t.classes {
			if x == old {
				t.classes[i] = c
			}
		}
	} else {
		t.classes = append(t.classes, c)
	}
	t.byNum[c.Number] = c
}

// Lookup returns the class numbered num.
func (t *ClassTable) Lookup(num uint16) (*Class, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.byNum[num]
	return c, ok
}

// Classes returns the classes in section order.
func (t *ClassTable) Classes() []*Class {
	if t == nil {
		return nil
	}
	return t.classes
}

// Len returns the number of classes.
func (t *ClassTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.classes)
}

// MaxNumber returns the highest class number, or 499 when empty.
func (t *ClassTable) MaxNumber() uint16 {
	max := uint16(TypeClassBase) - 1
	for _, c := range t.Classes() {
		if c.Number > max {
			max = c.Number
		}
	}
	return max
}
