package ai

// Prompts shared across all providers. The shop operates in Spanish, so
// every instruction and canned answer is in Spanish.

// intentPromptTemplate takes the schema context and the user's query.
const intentPromptTemplate = `ANALIZA LA CONSULTA DEL USUARIO Y GENERA UN JSON CON LA ACCIÓN A REALIZAR.

CONTEXTO: Eres el asistente de MvRodados, una tienda de motos, bicicletas, accesorios e indumentaria.

ESQUEMA DE BASE DE DATOS DISPONIBLE:
%s
CONSULTA DEL USUARIO: %q

INSTRUCCIONES:
1. Usa solo tablas y columnas del esquema.
2. Para relaciones usa IDs numéricos (id_cliente, id_tipo_comprobante).
3. Fechas en formato YYYY-MM-DD.
4. Montos como números, sin símbolos de moneda.
5. Las condiciones usan solo columna, operador y valor: =, <>, <, >, LIKE, IN, BETWEEN, IS NULL, AND, OR.

RESPONDE ÚNICAMENTE CON UNO DE ESTOS JSON:

SELECT:
{"action": "select", "table": "NombreTabla", "condition": "columna = 'valor'", "fields": ["campo1", "campo2"], "limit": 10}

INSERT:
{"action": "insert", "table": "NombreTabla", "data": {"columna": "valor"}}

UPDATE:
{"action": "update", "table": "NombreTabla", "data": {"columna": "nuevo valor"}, "condition": "id = 5"}

DELETE:
{"action": "delete", "table": "NombreTabla", "condition": "id = 5"}

BÚSQUEDA DE PRECIOS EN INTERNET:
{"action": "web_search"}

SI NO ES UNA OPERACIÓN DE BASE DE DATOS:
{"action": "none"}

EJEMPLOS:
"agregar cliente María Gonzalez" -> {"action": "insert", "table": "Clientes", "data": {"nombre": "María", "apellido": "Gonzalez"}}
"mostrar motos honda" -> {"action": "select", "table": "Motos", "condition": "marca LIKE '%%honda%%'"}
`

// SystemPromptRetrieval restricts answers to the supplied records.
const SystemPromptRetrieval = `Eres un asistente especializado en la tienda MvRodados.
Responde solo basándote en los registros y documentos proporcionados.
Si no hay información suficiente, indica que no puedes responder con los datos actuales.`

// WebSearchPromptTemplate takes the product query when live prices
// could not be fetched.
const WebSearchPromptTemplate = `El usuario buscó: %q pero no pude acceder a los precios actuales en tiempo real.

Proporciona información útil y realista basada en el mercado de Argentina. Incluye:

- Precios aproximados en pesos argentinos (nuevo y usado)
- Dónde se puede comprar
- Características principales
- Recomendaciones

Responde de manera natural en español.`
