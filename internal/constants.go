package zbxchart

const (
	// DEFAULT_SERVER is the front-end URL used when neither an explicit value
	// nor ZABBIX_SERVER is given
	DEFAULT_SERVER = "http://localhost/zabbix"

	// DEFAULT_USER and DEFAULT_PASSWORD are the stock Zabbix credentials
	DEFAULT_USER     = "Admin"
	DEFAULT_PASSWORD = "zabbix"

	// API_SUFFIX is the JSON-RPC endpoint path that is stripped from base URLs
	API_SUFFIX = "/api_jsonrpc.php"

	// LOGIN_PATH is the web front-end login form target
	LOGIN_PATH = "/index.php"

	// GRAPH_PATH renders pre-configured graph objects
	GRAPH_PATH = "/chart2.php"

	// ITEM_GRAPH_PATH renders ad-hoc graphs from item ids
	ITEM_GRAPH_PATH = "/chart.php"

	// GRAPH_PROFILE is the profileIdx the front-end uses for graph filters
	GRAPH_PROFILE = "web.graphs.filter"

	// CHUNK_SIZE is the number of bytes copied per write when streaming a chart
	CHUNK_SIZE = 8192
)

const (
	DEFAULT_FROM   = "now-1d"
	DEFAULT_TO     = "now"
	DEFAULT_WIDTH  = "1782"
	DEFAULT_HEIGHT = "452"
)

// Environment variables consulted by Resolve
const (
	ENV_SERVER   = "ZABBIX_SERVER"
	ENV_USER     = "ZABBIX_USER"
	ENV_PASSWORD = "ZABBIX_PASSWORD"
)
