package fat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateFromWord(t *testing.T) {
	// 0x50FC = 0101000011111100: year offset 40 (2020), month 7, day 28.
	got := dateFromWord(0x50FC)
	assert.Equal(t, time.Date(2020, time.July, 28, 0, 0, 0, 0, time.UTC), got)
}

func TestDateToWord_RoundTrip(t *testing.T) {
	original := time.Date(2020, time.July, 28, 0, 0, 0, 0, time.UTC)
	word := dateToWord(original)
	assert.Equal(t, original, dateFromWord(word))
}

func TestDateToWord_OutOfRangeFailsSilently(t *testing.T) {
	assert.EqualValues(t, 0, dateToWord(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)))
	assert.EqualValues(t, 0, dateToWord(time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestTimestampFromWords_DateOnly(t *testing.T) {
	got := timestampFromWords(0x50FC, 0, 0)
	assert.Equal(t, time.Date(2020, time.July, 28, 0, 0, 0, 0, time.UTC), got)
}

func TestTimestampToWords_RoundTripEvenSeconds(t *testing.T) {
	original := time.Date(2020, time.July, 28, 14, 35, 42, 0, time.UTC)
	datePart, timePart, hundredths := timestampToWords(original)
	assert.EqualValues(t, 0, hundredths)
	assert.Equal(t, original, timestampFromWords(datePart, timePart, hundredths))
}

func TestTimestampToWords_OddSecondCarriesIntoHundredths(t *testing.T) {
	original := time.Date(2020, time.July, 28, 14, 35, 43, 0, time.UTC)
	datePart, timePart, hundredths := timestampToWords(original)
	assert.EqualValues(t, 100, hundredths)
	assert.Equal(t, original, timestampFromWords(datePart, timePart, hundredths))
}

func TestTimestampToWords_SubSecondResolution(t *testing.T) {
	original := time.Date(2020, time.July, 28, 14, 35, 42, 50_000_000, time.UTC)
	datePart, timePart, hundredths := timestampToWords(original)
	assert.EqualValues(t, 5, hundredths)
	assert.Equal(t, original, timestampFromWords(datePart, timePart, hundredths))
}
