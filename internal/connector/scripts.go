package connector

import (
	"encoding/json"
	"fmt"
)

// Scripted fallback: the same verbs expressed as Reminders automation
// scripts, run with osascript. Every script prints the connector's JSON
// contract (an array, a result object, or {"error": "..."}).

const scriptInterpreter = "osascript"

const listsScript = `
var app = Application('Reminders');
try {
  var lists = app.lists();
  JSON.stringify(lists.map(function(l) { return { id: l.id(), name: l.name() }; }));
} catch (e) {
  JSON.stringify({ error: String(e) });
}
`

const tasksScript = `
var app = Application('Reminders');
var listId = %s;
function ts(d) { return d ? (new Date(d).getTime() / 1000) : 0; }
try {
  var tasks = app.lists.byId(listId).reminders();
  JSON.stringify(tasks.map(function(t) {
    return {
      id: t.id(),
      name: t.name() || "No Title",
      completed: !!t.completed(),
      notes: t.body() || "",
      creationDate: ts(t.creationDate()),
      completionDate: ts(t.completionDate()),
      lastModifiedDate: ts(t.modificationDate())
    };
  }));
} catch (e) {
  JSON.stringify({ error: String(e) });
}
`

// mutateScript wraps a statement operating on `task`
const mutateScript = `
var app = Application('Reminders');
try {
  var task = app.reminders.byId(%s);
  %s
  JSON.stringify({ success: true });
} catch (e) {
  JSON.stringify({ error: String(e) });
}
`

const createScript = `
var app = Application('Reminders');
try {
  var list = app.lists.byId(%s);
  var reminder = app.Reminder({ name: %s });
  list.reminders.push(reminder);
  JSON.stringify({ success: true, id: reminder.id() });
} catch (e) {
  JSON.stringify({ error: String(e) });
}
`

// jsString quotes s as a JavaScript string literal
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// script returns the fallback script for a connector verb
func script(verb string, args []string) (string, bool) {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch verb {
	case "lists":
		return listsScript, true
	case "tasks":
		return fmt.Sprintf(tasksScript, jsString(arg(0))), true
	case "update-status":
		completed := "false"
		if arg(1) == "true" {
			completed = "true"
		}
		return fmt.Sprintf(mutateScript, jsString(arg(0)), "task.completed = "+completed+";"), true
	case "update-title":
		return fmt.Sprintf(mutateScript, jsString(arg(0)), "task.name = "+jsString(arg(1))+";"), true
	case "update-notes":
		return fmt.Sprintf(mutateScript, jsString(arg(0)), "task.body = "+jsString(arg(1))+";"), true
	case "delete-task":
		return fmt.Sprintf(mutateScript, jsString(arg(0)), "task.delete();"), true
	case "create-task":
		return fmt.Sprintf(createScript, jsString(arg(0)), jsString(arg(1))), true
	}
	return "", false
}
