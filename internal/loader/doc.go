// Package loader читает определения flow и метаданные агентов
// из blob-хранилища (gocloud.dev/blob).
//
// Раскладка каталога:
//
//	flows/<flow id>.json | .yaml | .yml
//	agents/metadata.json | .yaml | .yml
//
// Поддерживаются file://, mem://, s3:// и gs:// URL. Файлы читаются
// заново при каждом запросе, кэша между запусками нет.
package loader
