// Package cli реализует инструмент командной строки agentflow.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с agentflow API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Инкапсулирует запросы, разбор конвертов
// ответа (data, total, error) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080", "user-1")
//	flows, err := client.ListFlows()
//
// ## Output
//
// Форматирование вывода: таблицы (text/tabwriter) по умолчанию,
// JSON с флагом --json. Данные выводятся в stdout, сообщения — в stderr:
//
//	agentflow flow run demo --input topic=go --json | jq .data
//
// ## Commands
//
//   - flow: list, show, run
//   - run: show
//   - agent: list, run, plan
//
// Каждая группа создаётся фабричной функцией (NewFlowCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
