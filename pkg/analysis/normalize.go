package analysis

import (
	"strconv"

	"tradewatch/pkg/models"
)

// NormalizeTrade coerces a raw exchange trade into canonical numeric form.
// Price and quantity are required; a missing or non-numeric value yields a
// KindMalformedRecord error. QuoteValue falls back to price*quantity when the
// exchange did not report it.
//
// When no explicit profit is present, profit is derived from the taker side:
// +quote value for a taker buy, -quote value otherwise. This treats "buyer
// pays value" as a proxy for directional exposure; it is not realized pnl,
// but it is the convention the rest of the pipeline ranks on.
func NormalizeTrade(raw models.RawTrade) (models.TradeRecord, error) {
	price, err := parseDecimal("price", raw.Price)
	if err != nil {
		return models.TradeRecord{}, err
	}
	quantity, err := parseDecimal("quantity", raw.Quantity)
	if err != nil {
		return models.TradeRecord{}, err
	}

	quoteValue := price * quantity
	if raw.QuoteQuantity != "" {
		quoteValue, err = parseDecimal("quoteQuantity", raw.QuoteQuantity)
		if err != nil {
			return models.TradeRecord{}, err
		}
	}

	profit := quoteValue
	if raw.IsBuyerMaker {
		profit = -quoteValue
	}
	if raw.Profit != nil {
		profit = *raw.Profit
	}

	return models.TradeRecord{
		Address:      raw.Address,
		Symbol:       raw.Symbol,
		Price:        price,
		Quantity:     quantity,
		QuoteValue:   quoteValue,
		IsBuyerMaker: raw.IsBuyerMaker,
		Timestamp:    raw.Timestamp,
		Profit:       profit,
	}, nil
}

// NormalizeTrades converts a batch, dropping malformed records and reporting
// how many were dropped. One bad record must not sink the batch.
func NormalizeTrades(raws []models.RawTrade) ([]models.TradeRecord, int) {
	records := make([]models.TradeRecord, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		rec, err := NormalizeTrade(raw)
		if err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}

// NormalizeKline coerces a Binance-style kline array
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades]
// where numeric fields may arrive as JSON strings.
func NormalizeKline(fields []string) (models.Kline, error) {
	if len(fields) < 9 {
		return models.Kline{}, errOf(KindMalformedRecord, "kline has %d fields, want 9", len(fields))
	}

	openTime, err := parseMillis("openTime", fields[0])
	if err != nil {
		return models.Kline{}, err
	}
	closeTime, err := parseMillis("closeTime", fields[6])
	if err != nil {
		return models.Kline{}, err
	}
	tradeCount, err := parseMillis("trades", fields[8])
	if err != nil {
		return models.Kline{}, err
	}

	names := []string{"open", "high", "low", "close", "volume"}
	vals := make([]float64, len(names))
	for i, name := range names {
		vals[i], err = parseDecimal(name, fields[i+1])
		if err != nil {
			return models.Kline{}, err
		}
	}
	quoteVolume, err := parseDecimal("quoteVolume", fields[7])
	if err != nil {
		return models.Kline{}, err
	}

	return models.Kline{
		OpenTime:    openTime,
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
		CloseTime:   closeTime,
		QuoteVolume: quoteVolume,
		TradeCount:  tradeCount,
	}, nil
}

func parseDecimal(field, value string) (float64, error) {
	if value == "" {
		return 0, errOf(KindMalformedRecord, "missing required field %q", field)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &Error{Kind: KindMalformedRecord, Msg: "non-numeric field " + field, Err: err}
	}
	return f, nil
}

func parseMillis(field, value string) (int64, error) {
	if value == "" {
		return 0, errOf(KindMalformedRecord, "missing required field %q", field)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// Some venues serialize timestamps as floats.
		f, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil {
			return 0, &Error{Kind: KindMalformedRecord, Msg: "non-numeric field " + field, Err: err}
		}
		n = int64(f)
	}
	return n, nil
}
