package domain

// Source column headers.
const (
	ColStockpile = "Штабель"

	ColFireStart = "Дата начала"
	ColFireEnd   = "Дата оконч."

	ColInboundDate  = "ВыгрузкаНаСклад"
	ColInboundTons  = "На склад, тн"
	ColOutboundDate = "ПогрузкаНаСудно"
	ColOutboundTons = "На судно, тн"
	ColGradeSource  = "Наим. ЕТСНГ"

	ColReadingDate = "Дата акта"
	ColMaxTemp     = "Максимальная температура"

	ColWeatherDate = "date"
	ColWeatherT    = "t"
	ColWeatherP    = "p"
	ColHumidity    = "humidity"
)

// Feature table columns that do not come straight from a source table.
const (
	ColGrade     = "Марка"
	ColAgeDays   = "Возраст_дн"
	ColMass      = "mass"
	ColTempDelta = "Темп_изменение"
	ColWeekday   = "weekday"
	ColMonth     = "month"
	ColDate      = "Дата"
	ColGradeCode = "Марка_код"
	ColLabel     = "y_3d"

	ColProbability = "fire_proba"
	ColPrediction  = "fire_pred"
)

// FeatureColumns is the ordered feature set shared by training and inference.
var FeatureColumns = []string{
	ColGrade,
	ColAgeDays,
	ColMass,
	ColMaxTemp,
	ColTempDelta,
	ColWeekday,
	ColMonth,
	ColWeatherT,
	ColWeatherP,
	ColHumidity,
}

// Required columns per source table.
var (
	FireColumns        = []string{ColStockpile, ColFireStart, ColFireEnd}
	SupplyColumns      = []string{ColStockpile, ColInboundDate, ColInboundTons, ColOutboundDate, ColOutboundTons, ColGradeSource}
	TemperatureColumns = []string{ColStockpile, ColReadingDate, ColMaxTemp}
	WeatherColumns     = []string{ColWeatherDate, ColWeatherT, ColWeatherP, ColHumidity}

	// WeatherUploadColumns is the full column set a new yearly weather file must
	// carry before it is accepted into the data directory.
	WeatherUploadColumns = []string{
		"date", "t", "p", "humidity", "precipitation",
		"wind_dir", "v_avg", "v_max", "cloudcover", "visibility", "weather_code",
	}
)

// MissingColumns returns the entries of required absent from header, in the
// order they appear in required.
func MissingColumns(header, required []string) []string {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, c := range required {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}
