package fat

import "time"

// fatEpochYear is year zero of the FAT date word's 7-bit year field.
const fatEpochYear = 1980

// dateFromWord decodes a FAT date word (year-1980 in bits 15-9, month in bits
// 8-5, day in bits 4-0) into the UTC calendar date it names.
func dateFromWord(value uint16) time.Time {
	day := int(value & 0x001f)
	month := time.Month((value >> 5) & 0x000f)
	year := fatEpochYear + int(value>>9)

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// dateToWord packs a calendar date into a FAT date word. Years outside
// [1980, 2107], the range a 7-bit offset can hold, fail silently: the word
// comes back zeroed rather than an error, matching the original C driver's
// fat_from_unix_date, which never reports a conversion failure to its caller.
func dateToWord(t time.Time) uint16 {
	t = t.UTC()
	yearOffset := t.Year() - fatEpochYear
	if yearOffset < 0 || yearOffset > 0x7f {
		return 0
	}

	return uint16(yearOffset<<9) | uint16(t.Month())<<5 | uint16(t.Day())
}

// timestampFromWords decodes a FAT (date, time, tenths) triple into a
// time.Time. timePart and hundredths should be 0 for fields that only carry a
// date (last-accessed, deletion stamps). FAT stores seconds at 2-second
// resolution; hundredths (0-199, only present on creation time) supplies the
// missing bit plus up to 990ms of sub-second precision.
func timestampFromWords(datePart, timePart uint16, hundredths uint8) time.Time {
	date := dateFromWord(datePart)

	seconds := int(timePart&0x001f) * 2
	nanoseconds := 0
	if hundredths > 0 {
		seconds += int(hundredths / 100)
		nanoseconds = int(hundredths%100) * 10_000_000
	}

	minutes := int((timePart >> 5) & 0x003f)
	hours := int(timePart >> 11)

	return time.Date(
		date.Year(), date.Month(), date.Day(), hours, minutes, seconds, nanoseconds, time.UTC)
}

// timestampToWords is the inverse of timestampFromWords. It returns the FAT
// date word, time word, and hundredths-of-a-second byte (always 0 for fields
// that don't carry sub-second resolution: access/deletion stamps pass
// hundredths back as 0 and ignore the return value). Never fails: a year
// dateToWord can't represent yields a zero date word, and the time word is
// computed independently of it.
func timestampToWords(t time.Time) (datePart, timePart uint16, hundredths uint8) {
	t = t.UTC()

	datePart = dateToWord(t)
	timePart = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)

	if t.Second()%2 != 0 {
		hundredths = 100
	}
	hundredths += uint8(t.Nanosecond() / 10_000_000)

	return datePart, timePart, hundredths
}
