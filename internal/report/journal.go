package report

type Entity string

const (
	EntityReport  Entity = "report"
	EntityWarning Entity = "warning"
)

type Op int

const (
	OpInsert Op = iota
	OpCompensate
)

func (o Op) String() string {
	if o == OpCompensate {
		return "compensate"
	}
	return "insert"
}

// Entry is one step of a create: a committed insert, or the delete that undoes it.
type Entry struct {
	Op     Op
	Entity Entity
	ID     int64
}

// journal records the inserts of a single CreateReport call in commit order.
type journal struct {
	entries []Entry
}

func (j *journal) inserted(entity Entity, id int64) {
	j.entries = append(j.entries, Entry{Op: OpInsert, Entity: entity, ID: id})
}

func (j *journal) compensated(c Entry) {
	j.entries = append(j.entries, c)
}

// compensations lists the deletes that undo every recorded insert,
// newest first, so children go before the report that owns them.
func (j *journal) compensations() []Entry {
	var out []Entry
	for i := len(j.entries) - 1; i >= 0; i-- {
		entry := j.entries[i]
		if entry.Op != OpInsert {
			continue
		}
		out = append(out, Entry{Op: OpCompensate, Entity: entry.Entity, ID: entry.ID})
	}
	return out
}
