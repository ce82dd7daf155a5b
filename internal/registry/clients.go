package registry

// Client describes one supported dialect key, mirroring spec.md §6's
// CLIENTS table.
type Client struct {
	Key               string
	Name              string
	DefaultDatabase   string
	DisabledFeatures  []string
}

// Clients is the process-wide, never-reassigned registry of supported
// dialect keys (spec.md §9: "process singletons; initialize once at
// startup, never reassign").
var Clients = map[string]Client{
	"mysql":      {Key: "mysql", Name: "MySQL"},
	"mariadb":    {Key: "mariadb", Name: "MariaDB"},
	"postgresql": {Key: "postgresql", Name: "PostgreSQL"},
	"redshift":   {Key: "redshift", Name: "Amazon Redshift", DisabledFeatures: []string{"server:socketPath"}},
	"sqlserver":  {Key: "sqlserver", Name: "Microsoft SQL Server"},
	"sqlite":     {Key: "sqlite", Name: "SQLite", DisabledFeatures: []string{"server:host", "server:port", "server:user", "server:password", "server:ssl"}},
	"cassandra":  {Key: "cassandra", Name: "Cassandra", DisabledFeatures: []string{"server:socketPath"}},
}

// IsValidClient reports whether key names a registered dialect.
func IsValidClient(key string) bool {
	_, ok := Clients[key]
	return ok
}

// ClientKeys returns the sorted list of registered dialect keys, useful for
// error messages.
func ClientKeys() []string {
	keys := make([]string, 0, len(Clients))
	for k := range Clients {
		keys = append(keys, k)
	}
	// Simple insertion sort: the set is small (7 entries) and fixed at
	// process start, so pulling in "sort" for this one call site isn't
	// worth it — matches the teacher's own sortStrings helper in
	// internal/connector/postgres/query_builder.go.
	for i := 1; i < len(keys); i++ {
		k := keys[i]
		j := i - 1
		for j >= 0 && keys[j] > k {
			keys[j+1] = keys[j]
			j--
		}
		keys[j+1] = k
	}
	return keys
}

// disabledFieldSet returns the set of "server:<field>" entries suppressed
// for a client, per spec.md §4.3.
func disabledFieldSet(clientKey string) map[string]bool {
	set := make(map[string]bool)
	c, ok := Clients[clientKey]
	if !ok {
		return set
	}
	for _, f := range c.DisabledFeatures {
		set[f] = true
	}
	return set
}
