// Package units содержит реестр агентов (units) и встроенный каталог.
//
// Unit — единица бизнес-логики с одной операцией Run. Реестр
// заполняется один раз из явной таблицы регистрации и передаётся
// движку как зависимость.
//
// Встроенные агенты:
//   - echo      — возвращает вход
//   - fetch     — HTTP запрос с выборкой по JSON-пути (gjson) и заголовком страницы
//   - score     — оценка текста по ключевым словам
//   - stats     — описательная статистика по числам
//   - delay     — задержка
//   - transform — построение выхода по dot-путям входа
//   - merge     — объединение результатов пререквизитов
package units
