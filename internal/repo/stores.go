package repo

import "database/sql"

// Stores bundles the per-entity stores over one database handle.
type Stores struct {
	Repo    Repo
	Goals   *GoalStore
	Objs    *ObjectiveStore
	Tasks   *TaskStore
	Periods *PeriodStore
	Keys    *APIKeyStore
	Configs *ConfigStore
}

func NewStores(db *sql.DB) *Stores {
	r := Repo{DB: db}
	goals := goalCollection(r)
	objectives := objectiveCollection(r)
	tasks := taskCollection(r)
	return &Stores{
		Repo:    r,
		Goals:   &GoalStore{Col: goals, objectives: objectives},
		Objs:    &ObjectiveStore{Col: objectives, goals: goals, tasks: tasks},
		Tasks:   &TaskStore{Col: tasks},
		Periods: newPeriodStore(r),
		Keys:    newAPIKeyStore(r),
		Configs: newConfigStore(r),
	}
}

// Tx derives a Stores view whose entity stores all run on the given
// transaction.
func (s *Stores) Tx(tx *sql.Tx) *Stores {
	return &Stores{
		Repo:    s.Repo,
		Goals:   s.Goals.Tx(tx),
		Objs:    s.Objs.Tx(tx),
		Tasks:   s.Tasks.Tx(tx),
		Periods: s.Periods.Tx(tx),
		Keys:    s.Keys,
		Configs: s.Configs,
	}
}
