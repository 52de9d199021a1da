package config

import "sync"

// BuiltinConfig holds all built-in configuration data: the default agent
// catalogue, query catalogue, store layout, and model chain. User YAML
// overrides merge on top of these.
type BuiltinConfig struct {
	Agents  map[string]AgentSpec
	Queries map[string]QueryDef
	Tables  map[string]TableDef
	Indexes map[string]IndexDef
	Models  ModelChainConfig
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration.
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		Agents:  initBuiltinAgents(),
		Queries: initBuiltinQueries(),
		Tables:  initBuiltinTables(),
		Indexes: initBuiltinIndexes(),
		Models:  initBuiltinModels(),
	}
}

func initBuiltinAgents() map[string]AgentSpec {
	return map[string]AgentSpec{
		"maintenance": {
			Description:  "Aircraft maintenance and airworthiness assessment",
			Safety:       true,
			SystemPrompt: maintenancePrompt,
			Queries: []string{
				"get_flight", "get_aircraft_status",
				"query_maintenance_by_tail",
			},
		},
		"regulatory": {
			Description:  "Regulatory and airport slot compliance",
			Safety:       true,
			SystemPrompt: regulatoryPrompt,
			Queries: []string{
				"get_flight", "get_airport_info",
				"query_flights_by_route",
			},
		},
		"crew_compliance": {
			Description:  "Crew duty-time and rest legality",
			Safety:       true,
			SystemPrompt: crewCompliancePrompt,
			Queries: []string{
				"get_flight", "query_crew_roster_by_flight",
			},
		},
		"network_ops": {
			Description:  "Network impact and aircraft routing recovery",
			SystemPrompt: networkOpsPrompt,
			Queries: []string{
				"get_flight", "get_aircraft_status",
				"query_flights_by_route", "scan_disruption_history",
			},
		},
		"passenger_reaccommodation": {
			Description:  "Passenger rebooking, protection, and care",
			SystemPrompt: passengerPrompt,
			Queries: []string{
				"get_flight", "query_bookings_by_flight",
				"query_flights_by_route",
			},
		},
		"crew_scheduling": {
			Description:  "Reserve crew callout and pairing repair",
			SystemPrompt: crewSchedulingPrompt,
			Queries: []string{
				"get_flight", "query_crew_roster_by_flight",
			},
		},
		"cost_control": {
			Description:  "Recovery cost estimation and trade-offs",
			SystemPrompt: costControlPrompt,
			Queries: []string{
				"get_flight", "query_bookings_by_flight",
				"scan_disruption_history",
			},
		},
	}
}

func initBuiltinQueries() map[string]QueryDef {
	return map[string]QueryDef{
		"get_flight": {
			Kind:        QueryKindGet,
			Table:       "flights",
			Description: "Fetch one flight record by flight number and date",
			ParamsSchema: `{"type":"object","properties":{` +
				`"flight_number":{"type":"string","description":"Normalized flight number, e.g. EY123"},` +
				`"date":{"type":"string","description":"ISO-8601 departure date"}},` +
				`"required":["flight_number","date"]}`,
		},
		"get_aircraft_status": {
			Kind:        QueryKindGet,
			Table:       "aircraft_status",
			Description: "Fetch current status and location of an aircraft by tail number",
			ParamsSchema: `{"type":"object","properties":{` +
				`"tail_number":{"type":"string"}},"required":["tail_number"]}`,
		},
		"get_airport_info": {
			Kind:        QueryKindGet,
			Table:       "airports",
			Description: "Fetch airport operational data (curfews, slot rules) by IATA code",
			ParamsSchema: `{"type":"object","properties":{` +
				`"iata":{"type":"string"}},"required":["iata"]}`,
		},
		"query_bookings_by_flight": {
			Kind:        QueryKindQuery,
			Index:       "bookings_by_flight",
			Description: "List all bookings on a flight-date",
			ParamsSchema: `{"type":"object","properties":{` +
				`"flight_id":{"type":"string","description":"flight_number#date composite"}},` +
				`"required":["flight_id"]}`,
		},
		"query_crew_roster_by_flight": {
			Kind:        QueryKindQuery,
			Index:       "crew_by_flight",
			Description: "List crew assignments for a flight-date, including duty start times",
			ParamsSchema: `{"type":"object","properties":{` +
				`"flight_id":{"type":"string"}},"required":["flight_id"]}`,
		},
		"query_maintenance_by_tail": {
			Kind:        QueryKindQuery,
			Index:       "maintenance_by_tail",
			Description: "List maintenance records for an aircraft, most recent last",
			ParamsSchema: `{"type":"object","properties":{` +
				`"tail_number":{"type":"string"},` +
				`"since":{"type":"string","description":"Optional ISO-8601 lower bound on recorded_at"}},` +
				`"required":["tail_number"]}`,
		},
		"query_flights_by_route": {
			Kind:        QueryKindQuery,
			Index:       "flights_by_route",
			Description: "List flights on a route ordered by departure time",
			ParamsSchema: `{"type":"object","properties":{` +
				`"route":{"type":"string","description":"Origin-destination pair, e.g. AUH-LHR"},` +
				`"from":{"type":"string","description":"Optional ISO-8601 lower bound on departure"}},` +
				`"required":["route"]}`,
		},
		"scan_disruption_history": {
			Kind:        QueryKindScan,
			Table:       "disruption_history",
			Description: "Scan past disruption events matching an attribute filter; expensive, no index applies",
			ParamsSchema: `{"type":"object","properties":{` +
				`"attribute":{"type":"string"},` +
				`"value":{"type":"string"}},"required":["attribute","value"]}`,
		},
	}
}

func initBuiltinTables() map[string]TableDef {
	return map[string]TableDef{
		"flights":             {PartitionKey: "flight_number", SortKey: "date"},
		"aircraft_status":     {PartitionKey: "tail_number"},
		"airports":            {PartitionKey: "iata"},
		"bookings":            {PartitionKey: "booking_id"},
		"crew_roster":         {PartitionKey: "assignment_id"},
		"maintenance_records": {PartitionKey: "record_id"},
		"disruption_history":  {PartitionKey: "event_id"},
	}
}

func initBuiltinIndexes() map[string]IndexDef {
	return map[string]IndexDef{
		"bookings_by_flight": {
			Table:        "bookings",
			IndexName:    "flight-date-index",
			PartitionKey: "flight_id",
		},
		"crew_by_flight": {
			Table:        "crew_roster",
			IndexName:    "flight-date-index",
			PartitionKey: "flight_id",
		},
		"maintenance_by_tail": {
			Table:        "maintenance_records",
			IndexName:    "tail-index",
			PartitionKey: "tail_number",
			SortKey:      "recorded_at",
		},
		"flights_by_route": {
			Table:        "flights",
			IndexName:    "route-index",
			PartitionKey: "route",
			SortKey:      "departure_time",
		},
	}
}

func initBuiltinModels() ModelChainConfig {
	return ModelChainConfig{
		Models: []ModelConfig{
			{
				Provider:  ProviderBedrock,
				ModelID:   "anthropic.claude-3-5-sonnet-20241022-v2:0",
				MaxTokens: 4096,
			},
			{
				Provider:  ProviderAnthropic,
				ModelID:   "claude-3-5-sonnet-latest",
				APIKeyEnv: "ANTHROPIC_API_KEY",
				MaxTokens: 4096,
			},
		},
	}
}
