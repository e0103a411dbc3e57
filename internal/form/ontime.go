// Package form builds the browser-equivalent form submission for the
// TranStats "Download Raw Data" page.
package form

import (
	"strconv"
	"strings"

	"github.com/princespaghetti/rita/internal/period"
)

// Column is one field of the On-Time Performance table selected for download.
type Column struct {
	Name string
	Desc string
	Type string // "Num" or "Char"
}

// OnTimeColumns are the fields requested from the On-Time Performance table,
// in the order the form lists them.
var OnTimeColumns = []Column{
	{"YEAR", "Year", "Num"},
	{"QUARTER", "Quarter", "Num"},
	{"MONTH", "Month", "Num"},
	{"DAY_OF_MONTH", "DayofMonth", "Num"},
	{"DAY_OF_WEEK", "DayOfWeek", "Num"},
	{"FL_DATE", "FlightDate", "Char"},
	{"UNIQUE_CARRIER", "UniqueCarrier", "Char"},
	{"AIRLINE_ID", "AirlineID", "Num"},
	{"CARRIER", "Carrier", "Char"},
	{"TAIL_NUM", "TailNum", "Char"},
	{"FL_NUM", "FlightNum", "Char"},
	{"ORIGIN_AIRPORT_ID", "OriginAirportID", "Num"},
	{"ORIGIN", "Origin", "Char"},
	{"ORIGIN_CITY_NAME", "OriginCityName", "Char"},
	{"ORIGIN_STATE_ABR", "OriginState", "Char"},
	{"DEST_AIRPORT_ID", "DestAirportID", "Num"},
	{"DEST", "Dest", "Char"},
	{"DEST_CITY_NAME", "DestCityName", "Char"},
	{"DEST_STATE_ABR", "DestState", "Char"},
	{"CRS_DEP_TIME", "CRSDepTime", "Char"},
	{"DEP_TIME", "DepTime", "Char"},
	{"DEP_DELAY", "DepDelay", "Num"},
	{"DEP_DELAY_NEW", "DepDelayMinutes", "Num"},
	{"DEP_DEL15", "DepDel15", "Num"},
	{"TAXI_OUT", "TaxiOut", "Num"},
	{"WHEELS_OFF", "WheelsOff", "Char"},
	{"WHEELS_ON", "WheelsOn", "Char"},
	{"TAXI_IN", "TaxiIn", "Num"},
	{"CRS_ARR_TIME", "CRSArrTime", "Char"},
	{"ARR_TIME", "ArrTime", "Char"},
	{"ARR_DELAY", "ArrDelay", "Num"},
	{"ARR_DELAY_NEW", "ArrDelayMinutes", "Num"},
	{"ARR_DEL15", "ArrDel15", "Num"},
	{"CANCELLED", "Cancelled", "Num"},
	{"CANCELLATION_CODE", "CancellationCode", "Char"},
	{"DIVERTED", "Diverted", "Num"},
	{"CRS_ELAPSED_TIME", "CRSElapsedTime", "Num"},
	{"ACTUAL_ELAPSED_TIME", "ActualElapsedTime", "Num"},
	{"AIR_TIME", "AirTime", "Num"},
	{"FLIGHTS", "Flights", "Num"},
	{"DISTANCE", "Distance", "Num"},
	{"CARRIER_DELAY", "CarrierDelay", "Num"},
	{"WEATHER_DELAY", "WeatherDelay", "Num"},
	{"NAS_DELAY", "NASDelay", "Num"},
	{"SECURITY_DELAY", "SecurityDelay", "Num"},
	{"LATE_AIRCRAFT_DELAY", "LateAircraftDelay", "Num"},
}

const (
	onTimeUserTable = "On_Time_Performance"
	onTimeDBName    = "On_Time"
	onTimeRawTable  = "T_ONTIME"

	// geo ends in a Latin-1 non-breaking space, exactly as the page sends it.
	geoAll = "All\xa0"
)

// Build returns the form submission selecting p from the On-Time Performance table.
//
// FREQUENCY carries the numeric month, not a frequency code. The service
// rejects the request otherwise.
func Build(p period.Period) *Payload {
	year := strconv.Itoa(p.Year)
	month := strconv.Itoa(int(p.Month))

	names := make([]string, len(OnTimeColumns))
	for i, c := range OnTimeColumns {
		names[i] = c.Name
	}
	varlist := strings.Join(names, ",")

	payload := &Payload{}
	payload.Add("UserTableName", onTimeUserTable)
	payload.Add("DBShortName", onTimeDBName)
	payload.Add("RawDataTable", onTimeRawTable)
	payload.Add("sqlstr", " SELECT "+varlist+" FROM  "+onTimeRawTable+" WHERE Month ="+month+" AND YEAR="+year)
	payload.Add("varlist", varlist)
	payload.Add("grouplist", "")
	payload.Add("suml", "")
	payload.Add("sumRegion", "")
	payload.Add("filter1", "title=")
	payload.Add("filter2", "title=")
	payload.Add("geo", geoAll)
	payload.Add("time", p.MonthName())
	payload.Add("timename", "Month")
	payload.Add("GEOGRAPHY", "All")
	payload.Add("XYEAR", year)
	payload.Add("FREQUENCY", month)

	for _, c := range OnTimeColumns {
		payload.Add("VarName", c.Name)
		payload.Add("VarDesc", c.Desc)
		payload.Add("VarType", c.Type)
	}

	return payload
}
