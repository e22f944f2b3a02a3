package dto

// CandleResponse は日足データのレスポンスDTOです。
// 価格は decimal(20,8) の値を丸めずに文字列で返します。
type CandleResponse struct {
	Date          string `json:"date"`           // 日付 (YYYY-MM-DD, UTC)
	Exchange      string `json:"exchange"`       // 取得元の取引所
	QuoteCurrency string `json:"quote_currency"` // 建て通貨
	Open          string `json:"open"`           // 始値
	High          string `json:"high"`           // 高値
	Low           string `json:"low"`            // 安値
	Close         string `json:"close"`          // 終値
	Volume        string `json:"volume"`         // 出来高
}

// ErrorResponse はエラー時のレスポンスDTOです。
type ErrorResponse struct {
	Error string `json:"error"`
}
